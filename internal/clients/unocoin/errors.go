package unocoin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrClientClosed is returned for requests issued after Close
	ErrClientClosed = errors.New("client is closed")

	// ErrQueueFull is returned when the pacing queue cannot accept another request
	ErrQueueFull = errors.New("request queue is full")

	// ErrTransport wraps failures to reach the exchange at all
	ErrTransport = errors.New("transport failure")
)

// APIError is a non-2xx response from the exchange
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Message    string // message extracted from the response body, if any
	Body       string // response body, truncated
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Status)
}

// IsAlreadyRegistered reports whether the exchange rejected a registration because the
// email already has an account
func (e *APIError) IsAlreadyRegistered() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "already registered") || strings.Contains(msg, "already exists")
}

// IsUnauthorized reports whether the credential was rejected
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newAPIError(method, path string, resp *http.Response, body []byte) *APIError {
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    extractMessage(body),
		Body:       truncate(string(body)),
	}
}

// extractMessage pulls a human readable message out of an error body.
// The exchange is not consistent about the key it uses.
func extractMessage(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error_description", "error", "errMsg"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "..."
	}
	return s
}
