package trades

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/domain"
)

const tradesPath = "trades"

// Service places and lists trades
type Service struct {
	api    domain.API
	quotes QuoteFetcher
	log    zerolog.Logger
}

// NewService creates a trade service. Every trade it produces shares api and fetcher.
func NewService(api domain.API, fetcher QuoteFetcher, log zerolog.Logger) *Service {
	return &Service{
		api:    api,
		quotes: fetcher,
		log:    log.With().Str("service", "trades").Logger(),
	}
}

// Place submits a trade
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Trade, error) {
	var rec Record
	if err := s.api.AuthPOST(ctx, tradesPath, req, &rec); err != nil {
		return nil, fmt.Errorf("failed to place trade: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("exchange returned a trade without id")
	}
	if rec.QuoteID == "" {
		rec.QuoteID = req.PriceQuoteID
	}

	t := New(rec, s.api, s.quotes)
	s.log.Info().
		Str("trade_id", t.ID).
		Str("quote_id", t.QuoteID).
		Str("side", string(t.Side())).
		Str("state", string(t.State)).
		Msg("Trade placed")
	return t, nil
}

// List fetches every trade known to the exchange
func (s *Service) List(ctx context.Context) ([]*Trade, error) {
	var recs []Record
	if err := s.api.AuthGET(ctx, tradesPath, nil, &recs); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return s.FromRecords(recs), nil
}

// FromRecords wraps persisted or fetched records
func (s *Service) FromRecords(recs []Record) []*Trade {
	out := make([]*Trade, 0, len(recs))
	for _, rec := range recs {
		out = append(out, New(rec, s.api, s.quotes))
	}
	return out
}
