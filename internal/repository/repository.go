package repository

import (
	"context"
	"time"

	"sharebox/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user records.
type UserRepository interface {
	// UpsertOnSignIn creates the user record on first sight and
	// merge-updates the mirrored provider fields thereafter. CreatedAt and
	// TotalUploads are only set on insert; the returned record reflects
	// the stored state.
	UpsertOnSignIn(ctx context.Context, user *domain.User) (*domain.User, error)

	GetByUID(ctx context.Context, uid string) (*domain.User, error)

	// IncrementUploads atomically bumps TotalUploads and stamps LastUpload.
	IncrementUploads(ctx context.Context, uid string, at time.Time) error
}

// FileRepository defines the interface for interacting with file metadata.
type FileRepository interface {
	Create(ctx context.Context, file *domain.FileRecord) (primitive.ObjectID, error)
	GetByShareID(ctx context.Context, shareID string) (*domain.FileRecord, error)
	GetByDownloadURL(ctx context.Context, downloadURL string) (*domain.FileRecord, error)
	GetByUploader(ctx context.Context, uid string) ([]domain.FileRecord, error)
}
