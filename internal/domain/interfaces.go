package domain

import (
	"context"
	"net/url"
)

// TokenOptions are passed to the identity delegate when requesting an email-proof token
type TokenOptions struct {
	// WalletAge asks the delegate to include the wallet age claim in the token
	WalletAge bool
}

// Delegate is the identity delegate owning the user's email identity and the durable save hook.
// The session never persists itself; it asks the delegate to do so.
type Delegate interface {
	// Email returns the registered email address, or "" when none is set
	Email() string

	// IsEmailVerified reports whether the email address has been verified
	IsEmailVerified() bool

	// GetToken obtains a short-lived email-proof token for the named partner.
	// It may block on external user action.
	GetToken(ctx context.Context, provider string, opts TokenOptions) (string, error)

	// Save durably persists the current session state
	Save(ctx context.Context) error
}

// API is the transport used by every module to talk to the exchange.
// Implementations own the base URL, credential attachment and request pacing.
// Responses are decoded into out when out is non-nil.
type API interface {
	// AuthPOST issues an authenticated POST using the offline token
	AuthPOST(ctx context.Context, path string, body, out interface{}) error

	// AuthGET issues an authenticated GET using the offline token
	AuthGET(ctx context.Context, path string, query url.Values, out interface{}) error

	// POST issues an unauthenticated POST with extra request headers
	POST(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) error

	// GET issues an unauthenticated GET
	GET(ctx context.Context, path string, query url.Values, out interface{}) error

	// SetOfflineToken installs the credential used by authenticated requests
	SetOfflineToken(token string)
}
