package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoStatus tracks a video through its processing lifecycle.
type VideoStatus string

const (
	StatusUploaded   VideoStatus = "uploaded"
	StatusProcessing VideoStatus = "processing"
	StatusCompleted  VideoStatus = "completed"
	StatusFailed     VideoStatus = "failed"
)

// SportType is the enumerated sport domain of a match video.
type SportType string

const (
	SportSoccer     SportType = "soccer"
	SportBasketball SportType = "basketball"
	SportTennis     SportType = "tennis"
	SportBaseball   SportType = "baseball"
	SportHockey     SportType = "hockey"
)

// ValidSportType reports whether s is one of the supported sports.
func ValidSportType(s SportType) bool {
	switch s {
	case SportSoccer, SportBasketball, SportTennis, SportBaseball, SportHockey:
		return true
	}
	return false
}

// Video represents an uploaded match video and its lifecycle state.
// The actual file bytes live in object storage under ObjectKey.
type Video struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	SportType   SportType          `bson:"sportType" json:"sportType"`
	Teams       []string           `bson:"teams,omitempty" json:"teams,omitempty"`
	MatchDate   *time.Time         `bson:"matchDate,omitempty" json:"matchDate,omitempty"`
	ObjectKey   string             `bson:"objectKey" json:"-"` // key in the S3 bucket - internal use
	FileName    string             `bson:"fileName" json:"fileName"`
	ContentType string             `bson:"contentType" json:"contentType"`
	FileSize    int64              `bson:"fileSize" json:"fileSize"` // bytes
	Duration    *float64           `bson:"duration,omitempty" json:"duration,omitempty"` // seconds, filled by intake worker
	Status      VideoStatus        `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Analyses is populated on read paths that attach results; it is not
	// stored on the video document itself.
	Analyses []AnalysisResult `bson:"-" json:"analyses,omitempty"`
}

// CanTransition reports whether moving from the current status to the target
// status is a legal lifecycle step. Transitions only move forward, with one
// exception: a re-analysis request may pull a completed or failed video back
// into processing.
func (s VideoStatus) CanTransition(target VideoStatus) bool {
	switch s {
	case StatusUploaded:
		return target == StatusProcessing || target == StatusFailed
	case StatusProcessing:
		return target == StatusCompleted || target == StatusFailed
	case StatusCompleted, StatusFailed:
		// Re-analysis re-enters processing; everything else is frozen.
		return target == StatusProcessing
	}
	return false
}

// IsTerminal reports whether the status marks the end of a processing pass.
func (s VideoStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
