package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/unocoin/internal/domain"
	testutil "github.com/aristath/unocoin/internal/testing"
)

func TestQuote_IsExpired(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &Quote{ID: "q1", ExpiresAt: expiry}

	assert.False(t, q.IsExpired(expiry.Add(-time.Second)))
	assert.True(t, q.IsExpired(expiry), "expiry instant itself is no longer usable")
	assert.True(t, q.IsExpired(expiry.Add(time.Second)))
}

func TestQuote_TimeLeft(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &Quote{ExpiresAt: expiry}

	assert.Equal(t, 30*time.Second, q.TimeLeft(expiry.Add(-30*time.Second)))
	assert.Equal(t, time.Duration(0), q.TimeLeft(expiry.Add(time.Minute)))
}

func TestCheckUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, CheckUsable(nil, now), domain.ErrInvalidArgument)
	assert.ErrorIs(t, CheckUsable(&Quote{ID: "old", ExpiresAt: now}, now), domain.ErrQuoteExpired)
	assert.NoError(t, CheckUsable(&Quote{ID: "fresh", ExpiresAt: now.Add(time.Minute)}, now))
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{BaseCurrency: domain.CurrencyBTC, QuoteCurrency: domain.CurrencyINR, BaseAmount: 0.1}, false},
		{"missing currency", Request{BaseCurrency: domain.CurrencyBTC, BaseAmount: 1}, true},
		{"same currency", Request{BaseCurrency: domain.CurrencyINR, QuoteCurrency: domain.CurrencyINR, BaseAmount: 1}, true},
		{"zero amount", Request{BaseCurrency: domain.CurrencyBTC, QuoteCurrency: domain.CurrencyINR}, true},
		{"negative amount", Request{BaseCurrency: domain.CurrencyBTC, QuoteCurrency: domain.CurrencyINR, BaseAmount: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_GetQuote(t *testing.T) {
	api := testutil.NewMockAPI()
	api.SetOfflineToken("offline")
	expiry := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	api.On("POST", "quotes", map[string]interface{}{
		"id":            "q-42",
		"baseCurrency":  "BTC",
		"quoteCurrency": "INR",
		"baseAmount":    0.01,
		"quoteAmount":   45000.5,
		"rate":          4500050,
		"expiryTime":    expiry.Format(time.RFC3339),
	})

	svc := NewService(api, zerolog.New(nil).Level(zerolog.Disabled))
	req := Request{BaseCurrency: domain.CurrencyBTC, QuoteCurrency: domain.CurrencyINR, BaseAmount: 0.01}

	q, err := svc.GetQuote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "q-42", q.ID)
	assert.Equal(t, domain.CurrencyINR, q.QuoteCurrency)
	assert.InDelta(t, 45000.5, q.QuoteAmount, 1e-9)
	assert.True(t, q.ExpiresAt.Equal(expiry))

	call, ok := api.LastCall()
	require.True(t, ok)
	assert.True(t, call.Auth)
	assert.Equal(t, req, call.Body)
}

func TestService_GetQuote_InvalidRequestMakesNoCall(t *testing.T) {
	api := testutil.NewMockAPI()
	api.SetOfflineToken("offline")
	svc := NewService(api, zerolog.New(nil).Level(zerolog.Disabled))

	_, err := svc.GetQuote(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 0, api.CallCount())
}

func TestService_GetQuote_RejectsIncompleteQuote(t *testing.T) {
	api := testutil.NewMockAPI()
	api.SetOfflineToken("offline")
	api.On("POST", "quotes", map[string]interface{}{"id": "q-1"})
	svc := NewService(api, zerolog.New(nil).Level(zerolog.Disabled))

	_, err := svc.GetQuote(context.Background(), Request{BaseCurrency: domain.CurrencyBTC, QuoteCurrency: domain.CurrencyINR, BaseAmount: 1})
	assert.Error(t, err)
}

func TestService_GetQuote_PropagatesRemoteError(t *testing.T) {
	api := testutil.NewMockAPI()
	api.SetOfflineToken("offline")
	remote := errors.New("boom")
	api.OnError("POST", "quotes", remote)
	svc := NewService(api, zerolog.New(nil).Level(zerolog.Disabled))

	_, err := svc.GetQuote(context.Background(), Request{BaseCurrency: domain.CurrencyBTC, QuoteCurrency: domain.CurrencyINR, BaseAmount: 1})
	assert.ErrorIs(t, err, remote)
}

func TestBook_PutGetTake(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	book := NewBook(func() time.Time { return now })

	book.Put(&Quote{ID: "q1", ExpiresAt: now.Add(time.Minute)})

	q, ok := book.Get("q1")
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)

	q, ok = book.Take("q1")
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)

	_, ok = book.Get("q1")
	assert.False(t, ok)
}

func TestBook_PutPrunesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	book := NewBook(func() time.Time { return now })

	book.Put(&Quote{ID: "old", ExpiresAt: now.Add(time.Second)})
	now = now.Add(time.Minute)
	book.Put(&Quote{ID: "new", ExpiresAt: now.Add(time.Minute)})

	assert.Equal(t, 1, book.Len())
	_, ok := book.Get("old")
	assert.False(t, ok)
}
