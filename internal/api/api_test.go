package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/progress"
	"sharebox/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret  = "test-secret"
	testBaseURL = "https://sharebox.example.com"
)

// --- service fakes ---

type fakeAuthService struct {
	user *domain.User
	err  error
}

func (f *fakeAuthService) SessionFromProviderToken(ctx context.Context, accessToken string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return mintSessionToken(f.user.UID, f.user.Email), f.user, nil
}

func (f *fakeAuthService) BeginRedirect() (string, string) {
	return "https://provider.example.com/auth?state=abc", "abc"
}

func (f *fakeAuthService) CompleteRedirect(ctx context.Context, code string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return mintSessionToken(f.user.UID, f.user.Email), f.user, nil
}

func (f *fakeAuthService) SignOut(uid, email string) {}

func (f *fakeAuthService) Subscribe() (<-chan service.IdentityEvent, func()) {
	ch := make(chan service.IdentityEvent)
	return ch, func() { close(ch) }
}

func (f *fakeAuthService) GetJWTSecret() string { return testSecret }

type fakeUploadService struct {
	result *service.UploadResult
	err    error
	gotIn  service.UploadInput
}

func (f *fakeUploadService) Upload(ctx context.Context, in service.UploadInput) (*service.UploadResult, error) {
	f.gotIn = in
	if in.OnProgress != nil {
		in.OnProgress(50)
		in.OnProgress(100)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeUploadService) MaxBytes() int64 { return service.MaxUploadBytes }

type fakeShareService struct {
	records map[string]*domain.FileRecord
}

func (f *fakeShareService) Resolve(ctx context.Context, shareID string) (*domain.FileRecord, error) {
	rec, ok := f.records[shareID]
	if !ok {
		return nil, service.ErrFileNotFound
	}
	return rec, nil
}

func (f *fakeShareService) FreshDownloadURL(ctx context.Context, rec *domain.FileRecord) string {
	return rec.DownloadURL
}

func (f *fakeShareService) ShareLinks(shareURL, filename string) map[string]string {
	return map[string]string{"email": "mailto:?body=" + shareURL}
}

// --- helpers ---

func mintSessionToken(uid, email string) string {
	claims := &service.SessionClaims{
		UID:   uid,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	return token
}

func newTestRouter(auth service.AuthService, uploads service.UploadService, shares service.ShareService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, testBaseURL, auth, uploads, shares, progress.NewBroker(), zap.NewNop())
	return router
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// --- download path ---

func TestDownloadRedirectsToStoredURL(t *testing.T) {
	storedURL := "https://files.sharebox.test/uploads/u1/1_a.txt?sig=1"
	shares := &fakeShareService{records: map[string]*domain.FileRecord{
		"k3j9x2m8q1w5e7r4t6y0": {ShareID: "k3j9x2m8q1w5e7r4t6y0", DownloadURL: storedURL, OriginalName: "a.txt"},
	}}
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, shares)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/download/k3j9x2m8q1w5e7r4t6y0", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, storedURL, w.Header().Get("Location"))
}

func TestDownloadUnknownShareID(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{records: map[string]*domain.FileRecord{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/download/aaaaaaaaaaaaaaaaaaaa", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"File not found"}`, w.Body.String())
	assert.Empty(t, w.Header().Get("Location"), "a miss must never redirect")
}

func TestFileInfo(t *testing.T) {
	shares := &fakeShareService{records: map[string]*domain.FileRecord{
		"k3j9x2m8q1w5e7r4t6y0": {
			ShareID:      "k3j9x2m8q1w5e7r4t6y0",
			OriginalName: "a.txt",
			DownloadURL:  "https://files.sharebox.test/uploads/u1/1_a.txt",
		},
	}}
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, shares)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/k3j9x2m8q1w5e7r4t6y0", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ShareURL   string            `json:"shareUrl"`
		ShareLinks map[string]string `json:"shareLinks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testBaseURL+"/download/k3j9x2m8q1w5e7r4t6y0", body.ShareURL)
	assert.Contains(t, body.ShareLinks, "email")
}

// --- upload path ---

func TestUploadRequiresAuth(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{})

	body, contentType := multipartBody(t, "file", "a.txt", []byte("hello"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadSuccess(t *testing.T) {
	uploads := &fakeUploadService{result: &service.UploadResult{
		DownloadURL: "https://files.sharebox.test/uploads/u1/1_a.txt?sig=1",
		ShareID:     "k3j9x2m8q1w5e7r4t6y0",
	}}
	router := newTestRouter(&fakeAuthService{}, uploads, &fakeShareService{})

	body, contentType := multipartBody(t, "file", "a.txt", []byte("hello"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+mintSessionToken("u1", "a@example.com"))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "k3j9x2m8q1w5e7r4t6y0", resp.ShareID)
	assert.Equal(t, testBaseURL+"/download/k3j9x2m8q1w5e7r4t6y0", resp.ShareURL)

	// The handler passed through the authenticated identity and file facts.
	require.NotNil(t, uploads.gotIn.Owner)
	assert.Equal(t, "u1", uploads.gotIn.Owner.UID)
	assert.Equal(t, "a.txt", uploads.gotIn.Filename)
	assert.Equal(t, int64(5), uploads.gotIn.Size)
}

func TestUploadTooLarge(t *testing.T) {
	uploads := &fakeUploadService{err: service.ErrFileTooLarge}
	router := newTestRouter(&fakeAuthService{}, uploads, &fakeShareService{})

	body, contentType := multipartBody(t, "file", "big.bin", []byte("stand-in"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+mintSessionToken("u1", "a@example.com"))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "File size must be less than 200MB")
}

func TestUploadMissingFile(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
	req.Header.Set("Authorization", "Bearer "+mintSessionToken("u1", "a@example.com"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- auth surface ---

func TestCreateSession(t *testing.T) {
	auth := &fakeAuthService{user: &domain.User{UID: "u1", Email: "a@example.com"}}
	router := newTestRouter(auth, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/session",
		bytes.NewBufferString(`{"accessToken":"provider-token"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestCreateSessionFailure(t *testing.T) {
	auth := &fakeAuthService{err: service.ErrSignInFailed}
	router := newTestRouter(auth, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/session",
		bytes.NewBufferString(`{"accessToken":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlowSelection(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{})

	tests := []struct {
		name      string
		userAgent string
		query     string
		wantFlow  string
	}{
		{"desktop", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/120.0", "?width=1920", "popup"},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "?width=390", "redirect"},
		{"small window", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/120.0", "?width=700", "redirect"},
		{"standalone", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/120.0", "?standalone=true", "redirect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/flow"+tt.query, nil)
			req.Header.Set("User-Agent", tt.userAgent)
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantFlow, resp["flow"])
		})
	}
}

func TestMe(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintSessionToken("u1", "a@example.com"))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp["uid"])
	assert.Equal(t, "a@example.com", resp["email"])
}

func TestMeRejectsExpiredToken(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{})

	claims := &service.SessionClaims{
		UID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBeginRedirectSetsStateCookie(t *testing.T) {
	router := newTestRouter(&fakeAuthService{}, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/redirect", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "provider.example.com")

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.Equal(t, "abc", stateCookie.Value)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	auth := &fakeAuthService{user: &domain.User{UID: "u1"}}
	router := newTestRouter(auth, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?code=xyz&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackSuccess(t *testing.T) {
	auth := &fakeAuthService{user: &domain.User{UID: "u1", Email: "a@example.com"}}
	router := newTestRouter(auth, &fakeUploadService{}, &fakeShareService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?code=xyz&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), testBaseURL+"/#token=")
}
