package inference

import (
	"context"

	"matchvision/sports-video-app/internal/domain"
)

// staticEngine is a deterministic local Engine used for development and
// wiring. It returns empty-but-well-shaped payloads per analysis type;
// deployments plug in a model-backed Engine instead.
type staticEngine struct {
	confidence float64
}

// NewStaticEngine creates an Engine that always succeeds with the given
// confidence score.
func NewStaticEngine(confidence float64) Engine {
	return &staticEngine{confidence: confidence}
}

func (e *staticEngine) Infer(ctx context.Context, objectKey string, analysisType domain.AnalysisType, parameters map[string]any) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"detected_events": []any{},
		"statistics":      map[string]any{},
	}
	switch analysisType {
	case domain.AnalysisGoalDetection:
		payload["highlights"] = []any{}
	case domain.AnalysisPlayerTracking:
		payload["tracks"] = []any{}
	case domain.AnalysisTacticalAnalysis:
		payload["formations"] = []any{}
	}

	return &Result{
		ConfidenceScore: e.confidence,
		Payload:         payload,
	}, nil
}
