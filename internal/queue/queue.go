package queue

import (
	"context"
	"time"
)

// IntakeMessage is the scheduling signal emitted after a successful upload.
// A worker outside this service consumes it to run intake processing
// (thumbnail generation, duration extraction, indexing).
type IntakeMessage struct {
	VideoID     string    `json:"video_id"`
	ObjectKey   string    `json:"object_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// IntakePublisher emits intake scheduling signals. Publishing is best
// effort from the upload processor's perspective: a broker outage must not
// fail the upload itself.
type IntakePublisher interface {
	PublishIntake(ctx context.Context, msg IntakeMessage) error
	Close() error
}
