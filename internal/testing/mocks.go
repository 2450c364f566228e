package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/aristath/unocoin/internal/domain"
)

// Call is one request observed by MockAPI
type Call struct {
	Method  string
	Path    string
	Auth    bool
	Body    interface{}
	Headers map[string]string
	Query   url.Values
}

type mockResponse struct {
	payload []byte
	err     error
}

// MockAPI is an in-memory domain.API. Responses are registered per method and path, encoded to
// JSON and decoded into the caller's out value, the way the real transport would.
// Authenticated calls without an offline token fail with ErrNotAuthenticated and are not recorded.
type MockAPI struct {
	mu        sync.RWMutex
	responses map[string][]mockResponse
	calls     []Call
	token     string
}

var _ domain.API = (*MockAPI)(nil)

// NewMockAPI creates a new mock API
func NewMockAPI() *MockAPI {
	return &MockAPI{responses: make(map[string][]mockResponse)}
}

func responseKey(method, path string) string {
	return method + " " + path
}

// On registers a successful response. Several registrations for the same route are consumed in
// order; the last one is sticky.
func (m *MockAPI) On(method, path string, response interface{}) {
	payload, err := json.Marshal(response)
	if err != nil {
		panic(fmt.Sprintf("mock response for %s %s is not JSON encodable: %v", method, path, err))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := responseKey(method, path)
	m.responses[key] = append(m.responses[key], mockResponse{payload: payload})
}

// OnError registers a failing response
func (m *MockAPI) OnError(method, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := responseKey(method, path)
	m.responses[key] = append(m.responses[key], mockResponse{err: err})
}

// Calls returns the recorded calls in order
func (m *MockAPI) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded calls
func (m *MockAPI) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// LastCall returns the most recent call
func (m *MockAPI) LastCall() (Call, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return Call{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Token returns the installed offline token
func (m *MockAPI) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// SetOfflineToken installs the offline token
func (m *MockAPI) SetOfflineToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// AuthPOST records an authenticated POST
func (m *MockAPI) AuthPOST(ctx context.Context, path string, body, out interface{}) error {
	return m.handle(ctx, Call{Method: "POST", Path: path, Auth: true, Body: body}, out)
}

// AuthGET records an authenticated GET
func (m *MockAPI) AuthGET(ctx context.Context, path string, query url.Values, out interface{}) error {
	return m.handle(ctx, Call{Method: "GET", Path: path, Auth: true, Query: query}, out)
}

// POST records an unauthenticated POST
func (m *MockAPI) POST(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) error {
	return m.handle(ctx, Call{Method: "POST", Path: path, Body: body, Headers: headers}, out)
}

// GET records an unauthenticated GET
func (m *MockAPI) GET(ctx context.Context, path string, query url.Values, out interface{}) error {
	return m.handle(ctx, Call{Method: "GET", Path: path, Query: query}, out)
}

func (m *MockAPI) handle(ctx context.Context, call Call, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if call.Auth && m.token == "" {
		m.mu.Unlock()
		return fmt.Errorf("%s %s: %w", call.Method, call.Path, domain.ErrNotAuthenticated)
	}
	m.calls = append(m.calls, call)

	key := responseKey(call.Method, call.Path)
	queue := m.responses[key]
	if len(queue) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("no mock response registered for %s", key)
	}
	resp := queue[0]
	if len(queue) > 1 {
		m.responses[key] = queue[1:]
	}
	m.mu.Unlock()

	if resp.err != nil {
		return resp.err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.payload, out)
}

// MockDelegate is a configurable domain.Delegate
type MockDelegate struct {
	mu sync.Mutex

	EmailAddress string
	Verified     bool
	Token        string
	TokenErr     error
	SaveErr      error

	// OnSave runs inside Save before SaveErr is returned
	OnSave func()

	tokenCalls   int
	lastProvider string
	lastOptions  domain.TokenOptions
	saves        int
}

var _ domain.Delegate = (*MockDelegate)(nil)

// NewMockDelegate creates a delegate with a verified email and a token
func NewMockDelegate(email, token string) *MockDelegate {
	return &MockDelegate{EmailAddress: email, Verified: true, Token: token}
}

// Email returns the configured email
func (d *MockDelegate) Email() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.EmailAddress
}

// IsEmailVerified returns the configured verification flag
func (d *MockDelegate) IsEmailVerified() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Verified
}

// GetToken returns the configured token and records the request
func (d *MockDelegate) GetToken(ctx context.Context, provider string, opts domain.TokenOptions) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokenCalls++
	d.lastProvider = provider
	d.lastOptions = opts
	if d.TokenErr != nil {
		return "", d.TokenErr
	}
	return d.Token, nil
}

// Save counts the call and returns SaveErr
func (d *MockDelegate) Save(ctx context.Context) error {
	d.mu.Lock()
	hook := d.OnSave
	d.saves++
	err := d.SaveErr
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

// TokenCalls returns how many times GetToken was called
func (d *MockDelegate) TokenCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tokenCalls
}

// LastTokenRequest returns the provider and options of the most recent GetToken call
func (d *MockDelegate) LastTokenRequest() (string, domain.TokenOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastProvider, d.lastOptions
}

// Saves returns how many times Save was called
func (d *MockDelegate) Saves() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves
}
