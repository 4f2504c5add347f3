package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"sharebox/internal/domain"
	"sharebox/internal/identity"
	"sharebox/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrSignInFailed    = errors.New("Failed to sign in with Google")
	ErrTokenGeneration = errors.New("failed to generate authentication token")
)

// IdentityEvent is published on every identity change. The auth service is
// the single writer; consumers subscribe and only read.
type IdentityEvent struct {
	UID      string    `json:"uid"`
	Email    string    `json:"email"`
	SignedIn bool      `json:"signedIn"`
	At       time.Time `json:"at"`
}

// AuthService normalizes both provider sign-in flows into an application
// session. Whichever flow completes, the outcome is the same: the user
// record is upserted and a session JWT is issued.
type AuthService interface {
	// SessionFromProviderToken handles the popup flow: the client already
	// holds a provider access token and trades it for an app session.
	SessionFromProviderToken(ctx context.Context, accessToken string) (token string, user *domain.User, err error)

	// BeginRedirect starts the redirect flow. The returned state must be
	// echoed back by the provider callback.
	BeginRedirect() (authURL string, state string)

	// CompleteRedirect finishes the redirect flow with the provider's code.
	CompleteRedirect(ctx context.Context, code string) (token string, user *domain.User, err error)

	// SignOut publishes the sign-out event. Sessions are stateless JWTs,
	// so there is nothing to revoke server-side.
	SignOut(uid, email string)

	// Subscribe returns a channel of identity events and a cancel func.
	Subscribe() (<-chan IdentityEvent, func())

	GetJWTSecret() string
}

// authService implements the AuthService interface.
type authService struct {
	provider      identity.Provider
	userRepo      repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger

	mu   sync.Mutex
	subs map[chan IdentityEvent]struct{}
}

// NewAuthService creates a new instance of authService.
func NewAuthService(provider identity.Provider, userRepo repository.UserRepository, jwtSecret string, jwtExpiration time.Duration, log *zap.Logger) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = 24 * time.Hour
	}
	return &authService{
		provider:      provider,
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
		subs:          make(map[chan IdentityEvent]struct{}),
	}
}

func (s *authService) SessionFromProviderToken(ctx context.Context, accessToken string) (string, *domain.User, error) {
	ident, err := s.provider.VerifyToken(ctx, accessToken)
	if err != nil {
		s.log.Warn("provider token verification failed", zap.Error(err))
		return "", nil, ErrSignInFailed
	}
	return s.establishSession(ctx, ident)
}

func (s *authService) BeginRedirect() (string, string) {
	state := uuid.NewString()
	return s.provider.AuthCodeURL(state), state
}

func (s *authService) CompleteRedirect(ctx context.Context, code string) (string, *domain.User, error) {
	ident, err := s.provider.Exchange(ctx, code)
	if err != nil {
		// Redirect outcomes routinely fail on pages not reached via the
		// provider (stale codes, reloads); log and report generically.
		s.log.Warn("redirect code exchange failed", zap.Error(err))
		return "", nil, ErrSignInFailed
	}
	return s.establishSession(ctx, ident)
}

// establishSession upserts the user record and mints the session token.
func (s *authService) establishSession(ctx context.Context, ident *identity.Identity) (string, *domain.User, error) {
	if ident == nil || ident.UID == "" {
		return "", nil, ErrSignInFailed
	}

	user, err := s.userRepo.UpsertOnSignIn(ctx, &domain.User{
		UID:         ident.UID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
	})
	if err != nil {
		s.log.Error("failed to upsert user record on sign-in",
			zap.String("uid", ident.UID),
			zap.Error(err))
		return "", nil, ErrSignInFailed
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	s.publish(IdentityEvent{UID: user.UID, Email: user.Email, SignedIn: true, At: time.Now().UTC()})
	return token, user, nil
}

func (s *authService) SignOut(uid, email string) {
	s.publish(IdentityEvent{UID: uid, Email: email, SignedIn: false, At: time.Now().UTC()})
}

func (s *authService) Subscribe() (<-chan IdentityEvent, func()) {
	ch := make(chan IdentityEvent, 8)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *authService) publish(ev IdentityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber drops the event rather than blocking sign-in.
		}
	}
}

// --- JWT Helper ---

// SessionClaims defines the structure of the session JWT payload.
type SessionClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// generateJWT creates a new session token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &SessionClaims{
		UID:   user.UID,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "sharebox",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
