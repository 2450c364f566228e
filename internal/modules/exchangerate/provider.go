// Package exchangerate provides indicative exchange rates with a persistent cache.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/clientdata"
	"github.com/aristath/unocoin/internal/domain"
)

const ratePath = "api/v1/exchange/rate"

// Rate is an indicative price of one unit of Base in Quote. Stale is set when the value came
// from an expired cache entry because the exchange could not be reached.
type Rate struct {
	Base      domain.Currency `json:"base"`
	Quote     domain.Currency `json:"quote"`
	Value     float64         `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}

type rateResponse struct {
	Rate float64 `json:"rate"`
}

// Provider fetches rates from the exchange. The cache is optional; without it every call
// goes to the exchange and there is no fallback.
type Provider struct {
	api   domain.API
	cache *clientdata.Repository
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

// NewProvider creates a rate provider
func NewProvider(api domain.API, cache *clientdata.Repository, log zerolog.Logger) *Provider {
	return &Provider{
		api:   api,
		cache: cache,
		ttl:   clientdata.TTLExchangeRate,
		now:   time.Now,
		log:   log.With().Str("service", "exchange_rate").Logger(),
	}
}

func cacheKey(base, quote domain.Currency) string {
	return string(base) + ":" + string(quote)
}

// GetRate returns the rate for base/quote. Fresh cache entries are served directly. When the
// exchange fails, an expired cache entry is returned with Stale set.
func (p *Provider) GetRate(ctx context.Context, base, quote domain.Currency) (*Rate, error) {
	base = domain.Currency(strings.ToUpper(string(base)))
	quote = domain.Currency(strings.ToUpper(string(quote)))
	if base == "" || quote == "" {
		return nil, fmt.Errorf("base and quote currency are required: %w", domain.ErrInvalidArgument)
	}
	if base == quote {
		return &Rate{Base: base, Quote: quote, Value: 1, FetchedAt: p.now()}, nil
	}

	key := cacheKey(base, quote)

	if cached, ok := p.fromCache(ctx, key, true); ok {
		p.log.Debug().Str("pair", key).Float64("rate", cached.Value).Msg("Cache hit")
		return cached, nil
	}

	var resp rateResponse
	query := url.Values{"base": {string(base)}, "quote": {string(quote)}}
	err := p.api.GET(ctx, ratePath, query, &resp)
	if err == nil && resp.Rate <= 0 {
		err = fmt.Errorf("exchange returned non-positive rate %v for %s", resp.Rate, key)
	}
	if err != nil {
		if stale, ok := p.fromCache(ctx, key, false); ok {
			stale.Stale = true
			p.log.Warn().
				Err(err).
				Str("pair", key).
				Float64("rate", stale.Value).
				Msg("Exchange failed, using stale cached rate")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch rate %s: %w", key, err)
	}

	rate := &Rate{Base: base, Quote: quote, Value: resp.Rate, FetchedAt: p.now()}
	if p.cache != nil {
		if err := p.cache.Store(ctx, clientdata.TableExchangeRates, key, rate, p.ttl); err != nil {
			p.log.Warn().Err(err).Str("pair", key).Msg("Failed to cache exchange rate")
		}
	}

	p.log.Debug().Str("pair", key).Float64("rate", rate.Value).Msg("Fetched rate")
	return rate, nil
}

func (p *Provider) fromCache(ctx context.Context, key string, freshOnly bool) (*Rate, bool) {
	if p.cache == nil {
		return nil, false
	}

	var (
		data json.RawMessage
		err  error
	)
	if freshOnly {
		data, err = p.cache.GetIfFresh(ctx, clientdata.TableExchangeRates, key)
	} else {
		data, err = p.cache.Get(ctx, clientdata.TableExchangeRates, key)
	}
	if err != nil || data == nil {
		return nil, false
	}

	var rate Rate
	if err := json.Unmarshal(data, &rate); err != nil {
		p.log.Warn().Err(err).Str("pair", key).Msg("Discarding unreadable cached rate")
		if err := p.cache.Delete(ctx, clientdata.TableExchangeRates, key); err != nil {
			p.log.Warn().Err(err).Str("pair", key).Msg("Failed to discard cached rate")
		}
		return nil, false
	}
	return &rate, true
}
