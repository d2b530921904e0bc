package storage

import (
	"context"
	"io"
	"time"
)

// Default expiry duration for presigned playback URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations. The core
// treats the returned object key as an opaque file reference; only this
// layer knows how to turn it back into bytes.
type FileStorage interface {
	// Upload writes an object's bytes under the given key.
	Upload(ctx context.Context, objectKey string, contentType string, body io.Reader, size int64) error

	// Download opens a reader over a stored object. The caller must close it.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes an object from the storage provider.
	Delete(ctx context.Context, objectKey string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
