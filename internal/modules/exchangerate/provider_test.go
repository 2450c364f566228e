package exchangerate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/unocoin/internal/clientdata"
	"github.com/aristath/unocoin/internal/database"
	"github.com/aristath/unocoin/internal/domain"
	testutil "github.com/aristath/unocoin/internal/testing"
)

func newCache(t *testing.T, now *time.Time) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := database.Schema(database.NameClientData)
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return clientdata.NewRepository(db).WithClock(func() time.Time { return *now })
}

func newProvider(t *testing.T, api domain.API, cache *clientdata.Repository, now *time.Time) *Provider {
	t.Helper()
	p := NewProvider(api, cache, zerolog.New(nil).Level(zerolog.Disabled))
	p.now = func() time.Time { return *now }
	return p
}

func TestGetRate_SameCurrency(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := testutil.NewMockAPI()
	p := newProvider(t, api, nil, &now)

	rate, err := p.GetRate(context.Background(), "inr", domain.CurrencyINR)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate.Value, 1e-12)
	assert.Equal(t, 0, api.CallCount())
}

func TestGetRate_FetchesThenServesFromCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := testutil.NewMockAPI()
	api.On("GET", "api/v1/exchange/rate", map[string]float64{"rate": 4500000})
	p := newProvider(t, api, newCache(t, &now), &now)
	ctx := context.Background()

	rate, err := p.GetRate(ctx, domain.CurrencyBTC, domain.CurrencyINR)
	require.NoError(t, err)
	assert.InDelta(t, 4500000, rate.Value, 1e-9)
	assert.False(t, rate.Stale)

	call, _ := api.LastCall()
	assert.False(t, call.Auth)
	assert.Equal(t, "BTC", call.Query.Get("base"))
	assert.Equal(t, "INR", call.Query.Get("quote"))

	_, err = p.GetRate(ctx, domain.CurrencyBTC, domain.CurrencyINR)
	require.NoError(t, err)
	assert.Equal(t, 1, api.CallCount(), "second call within TTL hits the cache")
}

func TestGetRate_StaleFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := testutil.NewMockAPI()
	api.On("GET", "api/v1/exchange/rate", map[string]float64{"rate": 4500000})
	api.OnError("GET", "api/v1/exchange/rate", errors.New("connection refused"))
	p := newProvider(t, api, newCache(t, &now), &now)
	ctx := context.Background()

	_, err := p.GetRate(ctx, domain.CurrencyBTC, domain.CurrencyINR)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	rate, err := p.GetRate(ctx, domain.CurrencyBTC, domain.CurrencyINR)
	require.NoError(t, err)
	assert.True(t, rate.Stale)
	assert.InDelta(t, 4500000, rate.Value, 1e-9)
	assert.Equal(t, 2, api.CallCount())
}

func TestGetRate_ErrorWithoutCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := testutil.NewMockAPI()
	api.OnError("GET", "api/v1/exchange/rate", errors.New("connection refused"))
	p := newProvider(t, api, nil, &now)

	_, err := p.GetRate(context.Background(), domain.CurrencyBTC, domain.CurrencyINR)
	assert.ErrorContains(t, err, "connection refused")
}

func TestGetRate_RejectsNonPositiveRate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := testutil.NewMockAPI()
	api.On("GET", "api/v1/exchange/rate", map[string]float64{"rate": 0})
	p := newProvider(t, api, nil, &now)

	_, err := p.GetRate(context.Background(), domain.CurrencyBTC, domain.CurrencyINR)
	assert.Error(t, err)
}

func TestGetRate_MissingCurrency(t *testing.T) {
	now := time.Now()
	p := newProvider(t, testutil.NewMockAPI(), nil, &now)

	_, err := p.GetRate(context.Background(), "", domain.CurrencyINR)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGetRate_DiscardsUnreadableCacheEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := newCache(t, &now)
	ctx := context.Background()
	require.NoError(t, cache.Store(ctx, clientdata.TableExchangeRates, "BTC:INR", "not a rate", time.Hour))

	api := testutil.NewMockAPI()
	api.OnError("GET", "api/v1/exchange/rate", errors.New("unavailable"))
	p := newProvider(t, api, cache, &now)

	_, err := p.GetRate(ctx, domain.CurrencyBTC, domain.CurrencyINR)
	assert.Error(t, err)
	assert.Equal(t, 1, api.CallCount())

	data, err := cache.Get(ctx, clientdata.TableExchangeRates, "BTC:INR")
	require.NoError(t, err)
	assert.Nil(t, data)
}
