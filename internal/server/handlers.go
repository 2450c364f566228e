package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/unocoin/internal/clients/unocoin"
	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/session"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "unocoin",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": s.now().Format(time.RFC3339),
	}
}

// writeData wraps data in the standard {data, metadata} envelope
func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) {
	s.writeJSON(w, status, map[string]interface{}{
		"data":     data,
		"metadata": s.metadata(),
	})
}

// writeError maps err to a status code and writes it in the envelope
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	event := s.log.Warn()
	if status >= http.StatusInternalServerError {
		event = s.log.Error()
	}
	event.Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	s.writeJSON(w, status, map[string]interface{}{
		"error":    err.Error(),
		"metadata": s.metadata(),
	})
}

// statusFor classifies an error. The order matters: the not-found errors wrap
// ErrInvalidArgument. A rejected offline token is reported as 401, other remote failures as 502.
func statusFor(err error) int {
	if apiErr, ok := unocoin.AsAPIError(err); ok {
		if apiErr.IsUnauthorized() {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, domain.ErrQuoteExpired):
		return http.StatusGone
	case errors.Is(err, session.ErrTradeNotFound), errors.Is(err, session.ErrKYCNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, unocoin.ErrTransport), errors.Is(err, unocoin.ErrQueueFull):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidArgument)
	}
	return nil
}
