package trades

import (
	"context"
	"fmt"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/modules/quotes"
)

// QuoteFetcher obtains fresh quotes. Trades receive one at construction so they can requote.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, req quotes.Request) (*quotes.Quote, error)
}

// Trade is a trade together with the capabilities needed to refresh it.
// A Trade is never mutated after construction; merges and refreshes return new values.
type Trade struct {
	Record

	api    domain.API
	quotes QuoteFetcher
}

// New wraps rec. api and fetcher may be nil for trades that are only displayed.
func New(rec Record, api domain.API, fetcher QuoteFetcher) *Trade {
	return &Trade{Record: rec, api: api, quotes: fetcher}
}

// Key identifies the trade for reconciliation
func (t *Trade) Key() string {
	return t.ID
}

// MergeRemote returns the remote view of this trade. The receive address is only known locally
// for some buys, so it survives when the remote record omits it.
func (t *Trade) MergeRemote(remote *Trade) *Trade {
	rec := remote.Record
	if rec.ReceiveAddress == "" {
		rec.ReceiveAddress = t.ReceiveAddress
	}
	return &Trade{Record: rec, api: t.api, quotes: t.quotes}
}

// Side reports whether the trade buys or sells crypto
func (t *Trade) Side() Side {
	if t.TransferIn.Medium == domain.MediumBank {
		return SideBuy
	}
	return SideSell
}

// IsDiscardable reports whether the trade failed without any funds moving on chain.
// Such trades are not worth persisting.
func (t *Trade) IsDiscardable() bool {
	switch t.State {
	case StateExpired, StateCancelled, StateRejected:
		return t.TxHash == ""
	}
	return false
}

// Refresh polls the remote status of the trade
func (t *Trade) Refresh(ctx context.Context) (*Trade, error) {
	if t.api == nil {
		return nil, fmt.Errorf("trade %s has no API: %w", t.ID, domain.ErrInvalidState)
	}
	var rec Record
	if err := t.api.AuthGET(ctx, tradePath(t.ID), nil, &rec); err != nil {
		return nil, fmt.Errorf("failed to refresh trade %s: %w", t.ID, err)
	}
	return t.MergeRemote(New(rec, t.api, t.quotes)), nil
}

// Requote asks for a fresh quote pricing the same legs as this trade
func (t *Trade) Requote(ctx context.Context) (*quotes.Quote, error) {
	if t.quotes == nil {
		return nil, fmt.Errorf("trade %s has no quote fetcher: %w", t.ID, domain.ErrInvalidState)
	}
	return t.quotes.GetQuote(ctx, quotes.Request{
		BaseCurrency:  t.InCurrency,
		QuoteCurrency: t.OutCurrency,
		BaseAmount:    t.InAmount,
	})
}

// Filtered returns the records of all trades that are worth persisting, keeping order
func Filtered(list []*Trade) []Record {
	out := make([]Record, 0, len(list))
	for _, t := range list {
		if t.IsDiscardable() {
			continue
		}
		out = append(out, t.Record)
	}
	return out
}

func tradePath(id string) string {
	return tradesPath + "/" + id
}

// WithReceiveAddress returns a copy of the trade that remembers where bought crypto is sent
func (t *Trade) WithReceiveAddress(address string) *Trade {
	rec := t.Record
	rec.ReceiveAddress = address
	return &Trade{Record: rec, api: t.api, quotes: t.quotes}
}
