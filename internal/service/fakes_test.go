package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/identity"
	"sharebox/internal/repository"
	"sharebox/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- repository fakes ---

type fakeFileRepo struct {
	mu          sync.Mutex
	records     map[string]*domain.FileRecord // keyed by shareId
	createErr   error
	createCalls int
	getCalls    int
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{records: make(map[string]*domain.FileRecord)}
}

func (f *fakeFileRepo) Create(ctx context.Context, file *domain.FileRecord) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	file.ID = primitive.NewObjectID()
	cp := *file
	f.records[file.ShareID] = &cp
	return file.ID, nil
}

func (f *fakeFileRepo) GetByShareID(ctx context.Context, shareID string) (*domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	rec, ok := f.records[shareID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeFileRepo) GetByDownloadURL(ctx context.Context, downloadURL string) (*domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.DownloadURL == downloadURL {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFileRepo) GetByUploader(ctx context.Context, uid string) ([]domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FileRecord
	for _, rec := range f.records {
		if rec.UploadedBy == uid {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User // keyed by uid
	incErr   error
	incCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) UpsertOnSignIn(ctx context.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user == nil || user.UID == "" {
		return nil, errors.New("user uid is required")
	}
	now := time.Now().UTC()
	stored, ok := f.users[user.UID]
	if !ok {
		stored = &domain.User{UID: user.UID, CreatedAt: now}
		f.users[user.UID] = stored
	}
	stored.Email = user.Email
	stored.DisplayName = user.DisplayName
	stored.PhotoURL = user.PhotoURL
	stored.LastSignIn = now
	cp := *stored
	return &cp, nil
}

func (f *fakeUserRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (f *fakeUserRepo) IncrementUploads(ctx context.Context, uid string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incCalls++
	if f.incErr != nil {
		return f.incErr
	}
	stored, ok := f.users[uid]
	if !ok {
		return repository.ErrNotFound
	}
	stored.TotalUploads++
	t := at
	stored.LastUpload = &t
	return nil
}

// --- storage fake ---

const fakeStorageHost = "https://files.sharebox.test/"

type fakeStorage struct {
	mu           sync.Mutex
	objects      map[string]int64 // key -> byte count
	uploadErr    error
	presignErr   error
	uploadCalls  int
	presignCalls int
	chunkSize    int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]int64), chunkSize: 64 * 1024}
}

func (f *fakeStorage) Upload(ctx context.Context, objectKey string, contentType string, size int64, body io.Reader, onProgress storage.ProgressFunc) error {
	f.mu.Lock()
	f.uploadCalls++
	err := f.uploadErr
	chunk := f.chunkSize
	f.mu.Unlock()
	if err != nil {
		return err
	}

	// Consume the body in chunks, reporting cumulative counts the way a
	// real multipart transfer does.
	var total int64
	buf := make([]byte, chunk)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			total += int64(n)
			if onProgress != nil {
				onProgress(total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	f.mu.Lock()
	f.objects[objectKey] = total
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) PresignDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignCalls++
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("%s%s?sig=%d", fakeStorageHost, objectKey, f.presignCalls), nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectKey)
	return nil
}

// --- identity provider fake ---

type fakeProvider struct {
	ident       *identity.Identity
	verifyErr   error
	exchangeErr error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/auth?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*identity.Identity, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.ident, nil
}

func (f *fakeProvider) VerifyToken(ctx context.Context, accessToken string) (*identity.Identity, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.ident, nil
}
