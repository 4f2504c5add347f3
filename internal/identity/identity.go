// Package identity abstracts the external OAuth-style identity provider.
package identity

import "context"

// Identity is the normalized authentication outcome, regardless of which
// sign-in flow (popup token or redirect code) produced it.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Provider is the contract consumed from the identity provider. Internals
// behind it are out of scope; both sign-in flows normalize to an Identity.
type Provider interface {
	// AuthCodeURL returns the provider consent URL for the redirect flow.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code (redirect flow) for an Identity.
	Exchange(ctx context.Context, code string) (*Identity, error)

	// VerifyToken resolves a provider access token (popup flow) to an Identity.
	VerifyToken(ctx context.Context, accessToken string) (*Identity, error)
}
