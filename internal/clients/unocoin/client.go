// Package unocoin provides the HTTP transport for the Unocoin exchange API.
package unocoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/metrics"
)

const (
	// DefaultBaseURL is the production API root
	DefaultBaseURL = "https://app-api.unocoin.com/"

	defaultTimeout         = 30 * time.Second
	defaultRequestInterval = 250 * time.Millisecond
	requestQueueSize       = 100
	maxLoggedBody          = 500
	userAgent              = "unocoin-go/1.0"
)

// Config holds transport configuration
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RequestInterval time.Duration // minimum spacing between requests, 0 uses the default
	HTTPClient      *http.Client  // optional, overrides Timeout
	Metrics         metrics.Recorder
}

// request describes one call to the exchange
type request struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	headers map[string]string
	auth    bool
	out     interface{}
}

// requestJob represents a job in the pacing queue
type requestJob struct {
	ctx      context.Context
	req      request
	resultCh chan error
}

// Client is the exchange transport. Requests are queued and executed one at a time by a single
// worker, paced by a token bucket. It implements domain.API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    metrics.Recorder
	log        zerolog.Logger

	tokenMu      sync.RWMutex
	offlineToken string

	queueMu      sync.RWMutex
	closed       bool
	requestQueue chan requestJob
	stopChan     chan struct{}
	workerDone   chan struct{}
	once         sync.Once
}

var _ domain.API = (*Client)(nil)

// NewClient creates a new transport and starts its worker
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = defaultRequestInterval
	}

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	c := &Client{
		baseURL:      base,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		metrics:      recorder,
		log:          log.With().Str("component", "unocoin-api").Logger(),
		requestQueue: make(chan requestJob, requestQueueSize),
		stopChan:     make(chan struct{}),
		workerDone:   make(chan struct{}),
	}

	go c.worker()

	return c, nil
}

// SetOfflineToken installs the bearer credential for authenticated requests
func (c *Client) SetOfflineToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.offlineToken = token
}

// HasOfflineToken reports whether authenticated requests can be made
func (c *Client) HasOfflineToken() bool {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.offlineToken != ""
}

func (c *Client) token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.offlineToken
}

// AuthPOST issues an authenticated POST
func (c *Client) AuthPOST(ctx context.Context, path string, body, out interface{}) error {
	if !c.HasOfflineToken() {
		return fmt.Errorf("POST %s: %w", path, domain.ErrNotAuthenticated)
	}
	return c.enqueue(ctx, request{method: http.MethodPost, path: path, body: body, auth: true, out: out})
}

// AuthGET issues an authenticated GET
func (c *Client) AuthGET(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !c.HasOfflineToken() {
		return fmt.Errorf("GET %s: %w", path, domain.ErrNotAuthenticated)
	}
	return c.enqueue(ctx, request{method: http.MethodGet, path: path, query: query, auth: true, out: out})
}

// POST issues an unauthenticated POST. Extra headers are sent verbatim, which is how the
// registration call carries its email-proof bearer token.
func (c *Client) POST(ctx context.Context, path string, body interface{}, headers map[string]string, out interface{}) error {
	return c.enqueue(ctx, request{method: http.MethodPost, path: path, body: body, headers: headers, out: out})
}

// GET issues an unauthenticated GET
func (c *Client) GET(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.enqueue(ctx, request{method: http.MethodGet, path: path, query: query, out: out})
}

// enqueue hands the request to the worker and waits for its result
func (c *Client) enqueue(ctx context.Context, req request) error {
	resultCh := make(chan error, 1)
	job := requestJob{ctx: ctx, req: req, resultCh: resultCh}

	c.queueMu.RLock()
	if c.closed {
		c.queueMu.RUnlock()
		return ErrClientClosed
	}
	select {
	case c.requestQueue <- job:
	default:
		c.queueMu.RUnlock()
		return ErrQueueFull
	}
	c.queueMu.RUnlock()

	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker processes requests from the queue sequentially
func (c *Client) worker() {
	defer close(c.workerDone)

	for {
		select {
		case <-c.stopChan:
			// Drain what was queued before Close
			for {
				select {
				case job := <-c.requestQueue:
					c.processJob(job)
				default:
					return
				}
			}
		case job := <-c.requestQueue:
			c.processJob(job)
		}
	}
}

func (c *Client) processJob(job requestJob) {
	if err := job.ctx.Err(); err != nil {
		job.resultCh <- err
		return
	}
	if err := c.limiter.Wait(job.ctx); err != nil {
		job.resultCh <- pacingError(job.ctx, err)
		return
	}
	job.resultCh <- c.do(job.ctx, job.req)
}

// pacingError maps a limiter refusal to the context error it stands for. A wait that would
// outlive the deadline is reported as context.DeadlineExceeded.
func pacingError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

// Close stops the worker after it has finished the queued requests
func (c *Client) Close() {
	c.once.Do(func() {
		c.queueMu.Lock()
		c.closed = true
		close(c.stopChan)
		c.queueMu.Unlock()
		<-c.workerDone
	})
}

// do performs one HTTP round trip without pacing
func (c *Client) do(ctx context.Context, req request) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: req.path})
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	if req.auth {
		httpReq.Header.Set("Authorization", "Bearer "+c.token())
	}

	c.log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Str("request_id", requestID).
		Bool("auth", req.auth).
		Msg("Sending request")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordTransportFailure(req.method, req.path)
		return fmt.Errorf("%s %s: %w: %w", req.method, req.path, ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordRequest(req.method, req.path, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", req.method, req.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(req.method, req.path, resp, body)
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("status", resp.Status).
			Str("response_body", apiErr.Body).
			Str("path", req.path).
			Str("request_id", requestID).
			Msg("API returned non-2xx status")
		return apiErr
	}

	if req.out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, req.out); err != nil {
		c.log.Error().
			Err(err).
			Str("response_body", truncate(string(body))).
			Str("path", req.path).
			Msg("Failed to parse JSON response")
		return fmt.Errorf("%s %s: failed to parse response: %w", req.method, req.path, err)
	}

	return nil
}
