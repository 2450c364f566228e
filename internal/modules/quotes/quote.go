// Package quotes provides time-bounded price quotes from the exchange.
package quotes

import (
	"fmt"
	"time"

	"github.com/aristath/unocoin/internal/domain"
)

// Quote is an immutable priced offer to convert BaseAmount of BaseCurrency into QuoteAmount of
// QuoteCurrency. It may only be consumed while now is before ExpiresAt.
type Quote struct {
	ID            string          `json:"id"`
	BaseCurrency  domain.Currency `json:"baseCurrency"`
	QuoteCurrency domain.Currency `json:"quoteCurrency"`
	BaseAmount    float64         `json:"baseAmount"`
	QuoteAmount   float64         `json:"quoteAmount"`
	Rate          float64         `json:"rate"`
	Fee           float64         `json:"fee"`
	CreatedAt     time.Time       `json:"issueTime"`
	ExpiresAt     time.Time       `json:"expiryTime"`
}

// IsExpired reports whether the quote can no longer be used at now
func (q *Quote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// TimeLeft returns how long the quote stays usable, never negative
func (q *Quote) TimeLeft(now time.Time) time.Duration {
	if q.IsExpired(now) {
		return 0
	}
	return q.ExpiresAt.Sub(now)
}

// CheckUsable returns ErrInvalidArgument for a nil quote and ErrQuoteExpired once expired
func CheckUsable(q *Quote, now time.Time) error {
	if q == nil {
		return fmt.Errorf("quote is required: %w", domain.ErrInvalidArgument)
	}
	if q.IsExpired(now) {
		return fmt.Errorf("quote %s expired at %s: %w", q.ID, q.ExpiresAt.Format(time.RFC3339), domain.ErrQuoteExpired)
	}
	return nil
}
