package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/identity"
	"sharebox/internal/repository"
	"sharebox/internal/sharetoken"
	"sharebox/internal/storage"

	"go.uber.org/zap"
)

// MaxUploadBytes is the default per-file ceiling: 200 MiB.
const MaxUploadBytes int64 = 200 << 20

// --- Error Definitions ---
// Error strings here are user-facing; handlers surface them verbatim.
var (
	ErrNotSignedIn   = errors.New("You must be signed in to upload files")
	ErrMissingUserID = errors.New("Your session is missing a user id")
	ErrFileTooLarge  = errors.New("File size must be less than 200MB")
	ErrUploadFailed  = errors.New("Upload failed. Please try again")
	ErrDownloadURL   = errors.New("Could not create a download link")
	ErrSaveMetadata  = errors.New("Upload completed but saving file details failed")
)

// UploadInput carries one file and the identity uploading it.
type UploadInput struct {
	Owner       *identity.Identity
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader

	// OnProgress, when set, receives a non-decreasing sequence of
	// percentages in [0,100]. The final value arrives before Upload returns.
	OnProgress func(percent float64)
}

// UploadResult is what the caller needs to build the share URL.
type UploadResult struct {
	DownloadURL string `json:"downloadUrl"`
	ShareID     string `json:"shareId"`
}

type UploadService interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	MaxBytes() int64
}

// uploadService implements the upload pipeline: validate, mint the share
// token, stream to storage with progress, persist metadata, bump the
// uploader's counter.
type uploadService struct {
	fileRepo    repository.FileRepository
	userRepo    repository.UserRepository
	fileStorage storage.FileStorage
	maxBytes    int64
	urlExpiry   time.Duration
	log         *zap.Logger
}

// NewUploadService creates a new instance of uploadService.
func NewUploadService(
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	fileStorage storage.FileStorage,
	maxBytes int64,
	urlExpiry time.Duration,
	log *zap.Logger,
) UploadService {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &uploadService{
		fileRepo:    fileRepo,
		userRepo:    userRepo,
		fileStorage: fileStorage,
		maxBytes:    maxBytes,
		urlExpiry:   urlExpiry,
		log:         log,
	}
}

func (s *uploadService) MaxBytes() int64 {
	return s.maxBytes
}

func (s *uploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	// 1. Validate before any network activity. Each rejection carries a
	// distinct user-facing message.
	if in.Owner == nil {
		return nil, ErrNotSignedIn
	}
	if in.Owner.UID == "" {
		return nil, ErrMissingUserID
	}
	if in.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	// 2. Mint the share token up front; the metadata record written at
	// completion carries this exact value.
	shareID := sharetoken.New()

	// 3. Object key namespaced by uploader with a millisecond prefix so
	// repeated uploads of the same filename do not collide. Plain
	// concatenation: object keys are opaque strings, so dot segments in the
	// filename stay literal characters and cannot navigate out of the
	// uploader's prefix.
	now := time.Now().UTC()
	objectKey := fmt.Sprintf("uploads/%s/%d_%s", in.Owner.UID, now.UnixMilli(), in.Filename)

	// 4. Stream to storage, converting byte counts to clamped,
	// non-decreasing percentages.
	var lastPercent float64
	onBytes := func(transferred int64) {
		if in.OnProgress == nil || in.Size <= 0 {
			return
		}
		percent := float64(transferred) / float64(in.Size) * 100
		if percent > 100 {
			percent = 100
		}
		if percent < lastPercent {
			return
		}
		lastPercent = percent
		in.OnProgress(percent)
	}

	if err := s.fileStorage.Upload(ctx, objectKey, in.ContentType, in.Size, in.Body, onBytes); err != nil {
		s.log.Error("streaming upload failed",
			zap.String("key", objectKey),
			zap.String("uid", in.Owner.UID),
			zap.Error(err))
		return nil, ErrUploadFailed
	}

	// 5. Capability URL for the stored object.
	downloadURL, err := s.fileStorage.PresignDownloadURL(ctx, objectKey, s.urlExpiry)
	if err != nil {
		s.log.Error("failed to issue download URL",
			zap.String("key", objectKey),
			zap.Error(err))
		return nil, ErrDownloadURL
	}

	// 6. Persist the file record. The bytes are already stored; a failure
	// here leaves an orphaned object behind, so log the key for later
	// reconciliation.
	record := &domain.FileRecord{
		ShareID:      shareID,
		Filename:     in.Filename,
		OriginalName: in.Filename,
		Size:         in.Size,
		ContentType:  in.ContentType,
		DownloadURL:  downloadURL,
		UploadedBy:   in.Owner.UID,
		UploadedAt:   now,
		StorageRef:   objectKey,
	}
	if _, err := s.fileRepo.Create(ctx, record); err != nil {
		s.log.Error("failed to save file metadata, object is orphaned",
			zap.String("key", objectKey),
			zap.String("shareId", shareID),
			zap.Error(err))
		return nil, ErrSaveMetadata
	}

	// 7. Bump the uploader's counter. Failures must not block the success
	// path; log only.
	if err := s.userRepo.IncrementUploads(ctx, in.Owner.UID, now); err != nil {
		s.log.Warn("failed to increment upload counter",
			zap.String("uid", in.Owner.UID),
			zap.Error(err))
	}

	return &UploadResult{DownloadURL: downloadURL, ShareID: shareID}, nil
}
