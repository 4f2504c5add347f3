package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/repository"
	"sharebox/internal/sharetoken"
	"sharebox/internal/storage"

	"go.uber.org/zap"
)

var ErrFileNotFound = errors.New("File not found")

// ShareService resolves share tokens back to file records for the
// unauthenticated download path. Possession of the token is the only
// access check.
type ShareService interface {
	Resolve(ctx context.Context, shareID string) (*domain.FileRecord, error)

	// FreshDownloadURL returns a redirect target for the record. The
	// stored capability URL has a bounded lifetime, so a new one is
	// presigned from the storage ref; the stored URL is the fallback.
	FreshDownloadURL(ctx context.Context, rec *domain.FileRecord) string

	// ShareLinks composes pre-filled messages for third-party share targets.
	ShareLinks(shareURL, filename string) map[string]string
}

type shareService struct {
	fileRepo    repository.FileRepository
	fileStorage storage.FileStorage
	urlExpiry   time.Duration
	log         *zap.Logger
}

// NewShareService creates a new instance of shareService.
func NewShareService(fileRepo repository.FileRepository, fileStorage storage.FileStorage, urlExpiry time.Duration, log *zap.Logger) ShareService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &shareService{
		fileRepo:    fileRepo,
		fileStorage: fileStorage,
		urlExpiry:   urlExpiry,
		log:         log,
	}
}

func (s *shareService) Resolve(ctx context.Context, shareID string) (*domain.FileRecord, error) {
	// Malformed tokens cannot match a record; skip the store round-trip.
	if !sharetoken.Valid(shareID) {
		return nil, ErrFileNotFound
	}

	rec, err := s.fileRepo.GetByShareID(ctx, shareID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *shareService) FreshDownloadURL(ctx context.Context, rec *domain.FileRecord) string {
	if rec == nil {
		return ""
	}
	if rec.StorageRef != "" {
		if fresh, err := s.fileStorage.PresignDownloadURL(ctx, rec.StorageRef, s.urlExpiry); err == nil {
			return fresh
		} else {
			s.log.Warn("failed to re-presign download URL, falling back to stored URL",
				zap.String("shareId", rec.ShareID),
				zap.Error(err))
		}
	}
	return rec.DownloadURL
}

func (s *shareService) ShareLinks(shareURL, filename string) map[string]string {
	text := fmt.Sprintf("Download %s: %s", filename, shareURL)
	return map[string]string{
		"email": "mailto:?subject=" + url.QueryEscape("File shared with you: "+filename) +
			"&body=" + url.QueryEscape(text),
		"whatsapp": "https://wa.me/?text=" + url.QueryEscape(text),
		"telegram": "https://t.me/share/url?url=" + url.QueryEscape(shareURL) +
			"&text=" + url.QueryEscape("Download "+filename),
		"x": "https://twitter.com/intent/tweet?text=" + url.QueryEscape("Download "+filename) +
			"&url=" + url.QueryEscape(shareURL),
	}
}
