package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnalysisType identifies which analysis job to run against a video.
type AnalysisType string

const (
	AnalysisGoalDetection    AnalysisType = "goal_detection"
	AnalysisPlayerTracking   AnalysisType = "player_tracking"
	AnalysisTacticalAnalysis AnalysisType = "tactical_analysis"
)

// AllAnalysisTypes lists every supported analysis type. Used by the "all"
// completion policy to decide when a video counts as fully analyzed.
var AllAnalysisTypes = []AnalysisType{
	AnalysisGoalDetection,
	AnalysisPlayerTracking,
	AnalysisTacticalAnalysis,
}

// ValidAnalysisType reports whether t is one of the supported analysis types.
func ValidAnalysisType(t AnalysisType) bool {
	switch t {
	case AnalysisGoalDetection, AnalysisPlayerTracking, AnalysisTacticalAnalysis:
		return true
	}
	return false
}

// AnalysisResult stores the outcome of one successful analysis run.
// A video owns zero or more results; history accumulates, newest first on
// read paths.
type AnalysisResult struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VideoID         primitive.ObjectID `bson:"videoId" json:"videoId"`
	AnalysisType    AnalysisType       `bson:"analysisType" json:"analysisType"`
	Parameters      map[string]any     `bson:"parameters,omitempty" json:"parameters,omitempty"`
	ConfidenceScore float64            `bson:"confidenceScore" json:"confidenceScore"` // 0.0 - 1.0
	Payload         map[string]any     `bson:"payload,omitempty" json:"payload,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// JobState is the lifecycle of a per-(video, analysis type) job slot.
type JobState string

const (
	JobIdle    JobState = "idle"
	JobRunning JobState = "running"
)

// JobSlot is the persisted mutual-exclusion record guarding one analysis
// attempt at a time for a (video, analysis type) pair. Slots are transitioned
// by compare-and-swap in the repository so concurrent requesters never both
// observe idle.
type JobSlot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VideoID      primitive.ObjectID `bson:"videoId" json:"videoId"`
	AnalysisType AnalysisType       `bson:"analysisType" json:"analysisType"`
	State        JobState           `bson:"state" json:"state"`
	StartedAt    time.Time          `bson:"startedAt" json:"startedAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// paramKind is the expected value kind for one analysis option.
type paramKind int

const (
	paramNumber paramKind = iota
	paramBool
	paramString
)

func (k paramKind) String() string {
	switch k {
	case paramNumber:
		return "number"
	case paramBool:
		return "boolean"
	default:
		return "string"
	}
}

// analysisParamShapes declares the accepted option names and value kinds per
// analysis type. Unknown options or mistyped values are rejected rather than
// silently passed through to the inference engine.
var analysisParamShapes = map[AnalysisType]map[string]paramKind{
	AnalysisGoalDetection: {
		"sensitivity":     paramNumber,
		"min_confidence":  paramNumber,
		"include_replays": paramBool,
	},
	AnalysisPlayerTracking: {
		"max_players":    paramNumber,
		"team_side":      paramString,
		"min_confidence": paramNumber,
	},
	AnalysisTacticalAnalysis: {
		"formation_detection": paramBool,
		"heatmap":             paramBool,
		"segment_length":      paramNumber,
	},
}

// ValidateAnalysisParameters checks params against the declared shape for the
// given analysis type. Values are expected as they arrive from JSON decoding
// (float64 for numbers, bool, string).
func ValidateAnalysisParameters(t AnalysisType, params map[string]any) error {
	shape, ok := analysisParamShapes[t]
	if !ok {
		return fmt.Errorf("unsupported analysis type %q", t)
	}
	for name, value := range params {
		kind, ok := shape[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q for analysis type %q", name, t)
		}
		switch kind {
		case paramNumber:
			switch value.(type) {
			case float64, int, int64:
			default:
				return fmt.Errorf("parameter %q must be a %s", name, kind)
			}
		case paramBool:
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("parameter %q must be a %s", name, kind)
			}
		case paramString:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("parameter %q must be a %s", name, kind)
			}
		}
	}
	return nil
}
