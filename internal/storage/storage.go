package storage

import (
	"context"
	"io"
	"time"
)

// Default expiry duration for presigned download URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ProgressFunc receives the cumulative number of bytes handed to the
// storage provider. Callbacks are delivered in transfer order.
type ProgressFunc func(bytesTransferred int64)

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// Upload streams the body to the storage provider under objectKey,
	// reporting cumulative byte counts through onProgress (may be nil).
	Upload(ctx context.Context, objectKey string, contentType string, size int64, body io.Reader, onProgress ProgressFunc) error

	// PresignDownloadURL creates a capability URL that allows GET requests
	// for the object without further authentication.
	PresignDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
