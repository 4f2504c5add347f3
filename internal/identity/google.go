package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const userinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GoogleConfig carries the provider credentials for the Google client.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// googleProvider implements Provider against Google's OAuth2 endpoints.
type googleProvider struct {
	conf       *oauth2.Config
	httpClient *http.Client
	// userinfoURL is overridable so tests can point at a local server.
	userinfoURL string
}

// NewGoogleProvider creates a Provider backed by Google sign-in.
func NewGoogleProvider(cfg GoogleConfig) Provider {
	return &googleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userinfoURL: userinfoEndpoint,
	}
}

func (g *googleProvider) AuthCodeURL(state string) string {
	// prompt=select_account matches the product behavior: always let the
	// user pick an account instead of silently reusing the last one.
	return g.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *googleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return g.VerifyToken(ctx, token.AccessToken)
}

func (g *googleProvider) VerifyToken(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, errors.New("access token is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var info struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("userinfo response missing subject")
	}

	return &Identity{
		UID:         info.Sub,
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
	}, nil
}
