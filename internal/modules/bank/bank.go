// Package bank provides the linked bank accounts that fiat payouts are sent to.
package bank

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/domain"
)

const accountsPath = "bank-accounts"

var (
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{9,18}$`)
)

// AccountType is the kind of bank account
type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

// Account is a linked payout destination. AccountNumber is masked by the exchange.
type Account struct {
	ID            string      `json:"id"`
	HolderName    string      `json:"holderName"`
	AccountNumber string      `json:"accountNumber"`
	IFSC          string      `json:"ifsc"`
	BankName      string      `json:"bankName,omitempty"`
	Type          AccountType `json:"type,omitempty"`
	CreatedAt     time.Time   `json:"createTime"`
}

// LinkRequest is the body sent to link a new account
type LinkRequest struct {
	HolderName    string      `json:"holderName"`
	AccountNumber string      `json:"accountNumber"`
	IFSC          string      `json:"ifsc"`
	Type          AccountType `json:"type"`
}

// Normalize trims whitespace and upper-cases the IFSC code
func (r LinkRequest) Normalize() LinkRequest {
	r.HolderName = strings.TrimSpace(r.HolderName)
	r.AccountNumber = strings.TrimSpace(r.AccountNumber)
	r.IFSC = strings.ToUpper(strings.TrimSpace(r.IFSC))
	if r.Type == "" {
		r.Type = AccountTypeSavings
	}
	return r
}

// Validate checks a normalized request
func (r LinkRequest) Validate() error {
	if r.HolderName == "" {
		return fmt.Errorf("holder name is required: %w", domain.ErrInvalidArgument)
	}
	if !accountNumberPattern.MatchString(r.AccountNumber) {
		return fmt.Errorf("account number must be 9 to 18 digits: %w", domain.ErrInvalidArgument)
	}
	if !ifscPattern.MatchString(r.IFSC) {
		return fmt.Errorf("invalid IFSC code %q: %w", r.IFSC, domain.ErrInvalidArgument)
	}
	if r.Type != AccountTypeSavings && r.Type != AccountTypeCurrent {
		return fmt.Errorf("invalid account type %q: %w", r.Type, domain.ErrInvalidArgument)
	}
	return nil
}

// Service lists and links bank accounts and remembers the last fetched list
type Service struct {
	api domain.API
	log zerolog.Logger

	mu       sync.RWMutex
	accounts []Account
}

// NewService creates a bank service
func NewService(api domain.API, log zerolog.Logger) *Service {
	return &Service{
		api: api,
		log: log.With().Str("service", "bank").Logger(),
	}
}

// List fetches the linked accounts
func (s *Service) List(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := s.api.AuthGET(ctx, accountsPath, nil, &accounts); err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()

	s.log.Debug().Int("count", len(accounts)).Msg("Bank accounts fetched")
	return copyAccounts(accounts), nil
}

// Link registers a new payout account
func (s *Service) Link(ctx context.Context, req LinkRequest) (*Account, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var account Account
	if err := s.api.AuthPOST(ctx, accountsPath, req, &account); err != nil {
		return nil, fmt.Errorf("failed to link bank account: %w", err)
	}
	if account.ID == "" {
		return nil, fmt.Errorf("exchange returned a bank account without id")
	}

	s.mu.Lock()
	s.accounts = append(copyAccounts(s.accounts), account)
	s.mu.Unlock()

	s.log.Info().Str("account_id", account.ID).Str("ifsc", account.IFSC).Msg("Bank account linked")
	return &account, nil
}

// Get looks up an account from the last fetched list
func (s *Service) Get(id string) (*Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ID == id {
			account := a
			return &account, true
		}
	}
	return nil, false
}

func copyAccounts(in []Account) []Account {
	out := make([]Account, len(in))
	copy(out, in)
	return out
}
