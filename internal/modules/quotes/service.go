package quotes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/domain"
)

const quotesPath = "quotes"

// Request asks for a price to convert BaseAmount of BaseCurrency into QuoteCurrency
type Request struct {
	BaseCurrency  domain.Currency `json:"baseCurrency"`
	QuoteCurrency domain.Currency `json:"quoteCurrency"`
	BaseAmount    float64         `json:"baseAmount"`
}

// Validate checks the request before it is sent
func (r Request) Validate() error {
	if r.BaseCurrency == "" || r.QuoteCurrency == "" {
		return fmt.Errorf("base and quote currency are required: %w", domain.ErrInvalidArgument)
	}
	if r.BaseCurrency == r.QuoteCurrency {
		return fmt.Errorf("cannot quote %s against itself: %w", r.BaseCurrency, domain.ErrInvalidArgument)
	}
	if r.BaseAmount <= 0 {
		return fmt.Errorf("amount must be greater than 0: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// Service obtains quotes from the exchange
type Service struct {
	api domain.API
	log zerolog.Logger
}

// NewService creates a quote service
func NewService(api domain.API, log zerolog.Logger) *Service {
	return &Service{
		api: api,
		log: log.With().Str("service", "quotes").Logger(),
	}
}

// GetQuote requests a new quote
func (s *Service) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var q Quote
	if err := s.api.AuthPOST(ctx, quotesPath, req, &q); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if q.ID == "" || q.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("exchange returned an incomplete quote (id=%q)", q.ID)
	}

	s.log.Debug().
		Str("quote_id", q.ID).
		Str("base", string(q.BaseCurrency)).
		Str("quote", string(q.QuoteCurrency)).
		Float64("rate", q.Rate).
		Time("expires_at", q.ExpiresAt).
		Msg("Quote received")

	return &q, nil
}
