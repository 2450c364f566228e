package unocoin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/unocoin/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/", RequestInterval: time.Millisecond}, log)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, server
}

func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	_, err := NewClient(Config{BaseURL: "not a url"}, log)
	assert.Error(t, err)
}

func TestAuthPOST_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID, gotContentType, gotPath string
	var gotBody map[string]interface{}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"trade-1","state":"awaiting_transfer_in"}`))
	})
	client.SetOfflineToken("offline-token")

	var out struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	err := client.AuthPOST(context.Background(), "trades", map[string]string{"priceQuoteId": "q1"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer offline-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "/trades", gotPath)
	assert.Equal(t, "q1", gotBody["priceQuoteId"])
	assert.Equal(t, "trade-1", out.ID)
	assert.Equal(t, "awaiting_transfer_in", out.State)
}

func TestAuthRequests_WithoutTokenFailBeforeNetwork(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	err := client.AuthPOST(context.Background(), "trades", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	err = client.AuthGET(context.Background(), "api/v1/trades", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPOST_SendsExtraHeadersWithoutOfflineToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"result":"success","access_token":"abc"}`))
	})
	client.SetOfflineToken("must-not-leak")

	var out map[string]interface{}
	err := client.POST(context.Background(), "api/v1/authentication/register",
		map[string]string{"email_id": "user@example.com"},
		map[string]string{"Authorization": "Bearer email-token"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer email-token", gotAuth)
	assert.Equal(t, "abc", out["access_token"])
}

func TestGET_EncodesQuery(t *testing.T) {
	var gotQuery url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{}`))
	})

	err := client.GET(context.Background(), "api/v1/exchange/rate", url.Values{"base": {"BTC"}, "quote": {"INR"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "BTC", gotQuery.Get("base"))
	assert.Equal(t, "INR", gotQuery.Get("quote"))
}

func TestNon2xx_ReturnsAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
	})

	err := client.POST(context.Background(), "api/v1/authentication/register", nil, nil, nil)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Email already registered", apiErr.Message)
	assert.True(t, apiErr.IsAlreadyRegistered())
	assert.False(t, apiErr.IsUnauthorized())
}

func TestAPIError_Classification(t *testing.T) {
	tests := []struct {
		name       string
		err        APIError
		registered bool
		unauth     bool
	}{
		{"conflict", APIError{StatusCode: 409}, true, false},
		{"message already exists", APIError{StatusCode: 400, Message: "User already exists"}, true, false},
		{"server error", APIError{StatusCode: 500, Message: "internal"}, false, false},
		{"unauthorized", APIError{StatusCode: 401}, false, true},
		{"forbidden", APIError{StatusCode: 403}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.registered, tt.err.IsAlreadyRegistered())
			assert.Equal(t, tt.unauth, tt.err.IsUnauthorized())
		})
	}
}

func TestNon2xx_TruncatesLongBody(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(long)
	})

	err := client.GET(context.Background(), "api/v1/exchange/rate", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Len(t, apiErr.Body, maxLoggedBody+3)
}

func TestInvalidJSON_ReturnsParseError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	var out map[string]interface{}
	err := client.GET(context.Background(), "api/v1/exchange/rate", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestEmptyBody_IsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]interface{}
	err := client.GET(context.Background(), "api/v1/ping", nil, &out)
	assert.NoError(t, err)
}

func TestConcurrentRequests_AreSerialized(t *testing.T) {
	var inFlight, maxInFlight int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = io.WriteString(w, `{}`)
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.GET(context.Background(), "api/v1/ping", nil, nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestCancelledContext_ReturnsContextError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.GET(ctx, "api/v1/ping", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose_RejectsLaterRequests(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	client.Close()
	client.Close()

	err := client.GET(context.Background(), "api/v1/ping", nil, nil)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestUnreachableServer_ReturnsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL + "/"
	server.Close()

	client, err := NewClient(Config{BaseURL: baseURL, RequestInterval: time.Millisecond}, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	err = client.GET(context.Background(), "api/v1/ping", nil, nil)
	assert.ErrorIs(t, err, ErrTransport)
	_, isAPIError := AsAPIError(err)
	assert.False(t, isAPIError)
}

func TestPacingBeyondDeadline_ReturnsDeadlineExceeded(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/", RequestInterval: 2 * time.Second}, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	// Spend the burst token
	require.NoError(t, client.GET(context.Background(), "api/v1/ping", nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = client.GET(ctx, "api/v1/ping", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
