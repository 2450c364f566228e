// Package identity provides the identity delegate: the email identity of the user, the source of
// email-proof tokens, and the durable save hook for the session.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/snapshots"
)

// TokenSource produces email-proof tokens for a partner exchange
type TokenSource interface {
	Token(ctx context.Context, provider string, opts domain.TokenOptions) (string, error)
}

// StaticToken is a TokenSource returning a preconfigured token
type StaticToken string

// Token returns the configured token
func (s StaticToken) Token(ctx context.Context, provider string, opts domain.TokenOptions) (string, error) {
	return string(s), nil
}

// HTTPTokenSource asks an identity service for a signed email-proof token
type HTTPTokenSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTokenSource creates a token source for endpoint
func NewHTTPTokenSource(endpoint string, timeout time.Duration) *HTTPTokenSource {
	return &HTTPTokenSource{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Error   string `json:"error"`
}

// Token requests a token for provider. An unsuccessful response yields an empty token.
func (s *HTTPTokenSource) Token(ctx context.Context, provider string, opts domain.TokenOptions) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid token endpoint: %w", err)
	}
	q := u.Query()
	q.Set("partner", provider)
	fields := []string{"email"}
	if opts.WalletAge {
		fields = append(fields, "wallet_age")
	}
	q.Set("fields", strings.Join(fields, "|"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token service returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if !tr.Success {
		return "", nil
	}
	return tr.Token, nil
}

// SnapshotStore persists session snapshots
type SnapshotStore interface {
	Save(ctx context.Context, name string, s snapshots.Snapshot) error
}

// Config describes the local identity
type Config struct {
	Email         string
	EmailVerified bool
	SessionName   string
}

// Delegate implements domain.Delegate over a token source and a snapshot store.
// The session it saves is attached after construction, since the session needs the delegate
// to be built.
type Delegate struct {
	cfg    Config
	tokens TokenSource
	store  SnapshotStore
	log    zerolog.Logger

	mu     sync.RWMutex
	source func() snapshots.Snapshot
}

var _ domain.Delegate = (*Delegate)(nil)

// NewDelegate creates a delegate
func NewDelegate(cfg Config, tokens TokenSource, store SnapshotStore, log zerolog.Logger) *Delegate {
	return &Delegate{
		cfg:    cfg,
		tokens: tokens,
		store:  store,
		log:    log.With().Str("component", "identity").Logger(),
	}
}

// Attach sets the function producing the snapshot written by Save
func (d *Delegate) Attach(source func() snapshots.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = source
}

// Email returns the configured email address
func (d *Delegate) Email() string {
	return d.cfg.Email
}

// IsEmailVerified reports whether the configured email is verified
func (d *Delegate) IsEmailVerified() bool {
	return d.cfg.EmailVerified
}

// GetToken obtains an email-proof token from the token source
func (d *Delegate) GetToken(ctx context.Context, provider string, opts domain.TokenOptions) (string, error) {
	if d.tokens == nil {
		return "", nil
	}
	token, err := d.tokens.Token(ctx, provider, opts)
	if err != nil {
		return "", fmt.Errorf("failed to get %s token: %w", provider, err)
	}
	d.log.Debug().Str("provider", provider).Bool("wallet_age", opts.WalletAge).Bool("empty", token == "").Msg("Email token obtained")
	return token, nil
}

// Save writes the attached session's snapshot
func (d *Delegate) Save(ctx context.Context) error {
	d.mu.RLock()
	source := d.source
	d.mu.RUnlock()

	if source == nil {
		return fmt.Errorf("no session attached to delegate: %w", domain.ErrInvalidState)
	}
	if d.store == nil {
		return nil
	}

	snap := source()
	if err := d.store.Save(ctx, d.cfg.SessionName, snap); err != nil {
		return err
	}

	d.log.Debug().Str("session", d.cfg.SessionName).Int("trades", len(snap.Trades)).Msg("Session saved")
	return nil
}
