// Package session provides the exchange account session: the single owner of the account
// credential, the locally held trade and KYC collections, and the flows that change them.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/clientdata"
	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/events"
	"github.com/aristath/unocoin/internal/metrics"
	"github.com/aristath/unocoin/internal/modules/bank"
	"github.com/aristath/unocoin/internal/modules/exchangerate"
	"github.com/aristath/unocoin/internal/modules/kyc"
	"github.com/aristath/unocoin/internal/modules/profile"
	"github.com/aristath/unocoin/internal/modules/quotes"
	"github.com/aristath/unocoin/internal/modules/trades"
	"github.com/aristath/unocoin/internal/snapshots"
)

const moduleName = "session"

// Options configures a session
type Options struct {
	// API is the exchange transport. Required.
	API domain.API
	// Registration decides which registration failures signup may absorb.
	// Defaults to AlreadyRegisteredPolicy with an empty fallback.
	Registration RegistrationPolicy
	// RateCache backs the exchange rate provider. Optional.
	RateCache *clientdata.Repository
	Events    *events.Manager
	Metrics   metrics.Recorder
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Session is an exchange account session. All methods are safe for concurrent use.
// Collections are replaced wholesale under the lock and handed out as copies.
type Session struct {
	api      domain.API
	delegate domain.Delegate
	policy   RegistrationPolicy
	events   *events.Manager
	metrics  metrics.Recorder
	now      func() time.Time
	log      zerolog.Logger

	quotes  *quotes.Service
	trades  *trades.Service
	kyc     *kyc.Service
	bank    *bank.Service
	profile *profile.Service
	rates   *exchangerate.Provider

	buyCurrencies  []domain.Currency
	sellCurrencies []domain.Currency

	mu           sync.RWMutex
	user         string
	offlineToken string
	autoLogin    bool
	signingUp    bool
	tradeList    []*trades.Trade
	kycList      []*kyc.Submission
}

// New restores a session from a snapshot. delegate may be nil, in which case signup and every
// operation that saves will fail.
func New(snap snapshots.Snapshot, delegate domain.Delegate, opts Options) (*Session, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("session requires an API: %w", domain.ErrInvalidArgument)
	}
	if opts.Registration == nil {
		opts.Registration = AlreadyRegisteredPolicy(RegistrationResult{})
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := opts.Logger.With().Str("component", moduleName).Logger()
	quoteSvc := quotes.NewService(opts.API, log)

	s := &Session{
		api:            opts.API,
		delegate:       delegate,
		policy:         opts.Registration,
		events:         opts.Events,
		metrics:        opts.Metrics,
		now:            opts.Now,
		log:            log,
		quotes:         quoteSvc,
		trades:         trades.NewService(opts.API, quoteSvc, log),
		kyc:            kyc.NewService(opts.API, log),
		bank:           bank.NewService(opts.API, log),
		profile:        profile.NewService(opts.API, log),
		rates:          exchangerate.NewProvider(opts.API, opts.RateCache, log),
		buyCurrencies:  []domain.Currency{domain.FiatCurrency},
		sellCurrencies: []domain.Currency{domain.FiatCurrency},
		user:           snap.User,
		offlineToken:   snap.OfflineToken,
		autoLogin:      snap.AutoLogin,
		kycList:        []*kyc.Submission{},
	}
	s.tradeList = s.trades.FromRecords(snap.Trades)

	if s.offlineToken != "" {
		s.api.SetOfflineToken(s.offlineToken)
	}

	return s, nil
}

// NewAccount creates a session for a user who has not signed up yet
func NewAccount(delegate domain.Delegate, opts Options) (*Session, error) {
	if delegate == nil {
		return nil, fmt.Errorf("new account requires a delegate: %w", domain.ErrInvalidArgument)
	}
	return New(snapshots.Snapshot{AutoLogin: true}, delegate, opts)
}

// User returns the signed up email, or "" before signup
func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AutoLogin reports the auto-login flag
func (s *Session) AutoLogin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoLogin
}

// HasAccount reports whether the session holds an offline token
func (s *Session) HasAccount() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offlineToken != ""
}

// Profile returns the last fetched profile. ok is false until FetchProfile has succeeded.
func (s *Session) Profile() (*profile.Profile, bool) {
	return s.profile.Current()
}

// Bank returns the bank account service
func (s *Session) Bank() *bank.Service {
	return s.bank
}

// Trades returns a copy of the local trade collection
func (s *Session) Trades() []*trades.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*trades.Trade, len(s.tradeList))
	copy(out, s.tradeList)
	return out
}

// KYCs returns a copy of the local KYC collection
func (s *Session) KYCs() []*kyc.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*kyc.Submission, len(s.kycList))
	copy(out, s.kycList)
	return out
}

// BuyCurrencies returns the fiat currencies that can be used to buy crypto
func (s *Session) BuyCurrencies() []domain.Currency {
	return append([]domain.Currency(nil), s.buyCurrencies...)
}

// SellCurrencies returns the fiat currencies crypto can be sold for
func (s *Session) SellCurrencies() []domain.Currency {
	return append([]domain.Currency(nil), s.sellCurrencies...)
}

// Snapshot returns the durable state of the session. Trades that are not worth keeping are
// left out.
func (s *Session) Snapshot() snapshots.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshots.Snapshot{
		User:         s.user,
		OfflineToken: s.offlineToken,
		AutoLogin:    s.autoLogin,
		Trades:       trades.Filtered(s.tradeList),
	}
}

// MarshalJSON encodes the snapshot
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}
