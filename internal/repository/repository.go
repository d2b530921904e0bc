package repository

import (
	"context"
	"time"

	"matchvision/sports-video-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrSlotHeld     = RepositoryError("job slot already running")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// VideoFilter narrows a List query. Nil fields are ignored.
type VideoFilter struct {
	SportType *domain.SportType
	Status    *domain.VideoStatus
	Limit     int64
	Offset    int64
}

// VideoRepository defines the interface for interacting with video metadata.
type VideoRepository interface {
	Create(ctx context.Context, video *domain.Video) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Video, error)
	List(ctx context.Context, filter VideoFilter) ([]domain.Video, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.VideoStatus) error
	UpdateIntakeMetadata(ctx context.Context, id primitive.ObjectID, duration float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AnalysisRepository defines the interface for interacting with analysis results.
type AnalysisRepository interface {
	Create(ctx context.Context, result *domain.AnalysisResult) (primitive.ObjectID, error)
	GetByVideoID(ctx context.Context, videoID primitive.ObjectID) ([]domain.AnalysisResult, error)
	CountByType(ctx context.Context, videoID primitive.ObjectID) (map[domain.AnalysisType]int64, error)
	DeleteByVideoID(ctx context.Context, videoID primitive.ObjectID) error
}

// JobSlotRepository manages the persisted per-(video, analysis type) job
// slots. Acquire must be atomic: of N concurrent calls for the same key,
// exactly one succeeds and the rest get ErrSlotHeld.
type JobSlotRepository interface {
	Acquire(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType) error
	Release(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType) error
	// ReleaseStale resets slots that have been running longer than maxAge,
	// returning the keys that were reset. Used by the recovery sweep to
	// unstick slots orphaned by a crash between inference and persistence.
	ReleaseStale(ctx context.Context, maxAge time.Duration) ([]domain.JobSlot, error)
	DeleteByVideoID(ctx context.Context, videoID primitive.ObjectID) error
}
