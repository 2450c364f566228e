// Package kyc provides identity verification submissions.
package kyc

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/domain"
)

const kycPath = "kyc"

// State is the verification state of a submission
type State string

const (
	StatePending            State = "pending"
	StateDocumentsRequested State = "documentsRequested"
	StateReviewing          State = "reviewing"
	StateCompleted          State = "completed"
	StateRejected           State = "rejected"
	StateExpired            State = "expired"
)

// IsTerminal reports whether the submission is finished
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateRejected, StateExpired:
		return true
	}
	return false
}

// Document is one piece of supporting evidence attached to a submission
type Document struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Record is the external form of a submission
type Record struct {
	ID          string     `json:"id"`
	State       State      `json:"state"`
	RedirectURL string     `json:"redirectUrl,omitempty"`
	ExternalID  string     `json:"externalId,omitempty"`
	Documents   []Document `json:"documents,omitempty"`
	CreatedAt   time.Time  `json:"createTime"`
	UpdatedAt   time.Time  `json:"updateTime"`
}

// Submission is a KYC record bound to the API that can refresh it
type Submission struct {
	Record

	api domain.API
}

// NewSubmission wraps rec
func NewSubmission(rec Record, api domain.API) *Submission {
	return &Submission{Record: rec, api: api}
}

// Key identifies the submission for reconciliation
func (s *Submission) Key() string {
	return s.ID
}

// MergeRemote returns the remote view of this submission. The redirect URL is only handed out
// when verification is triggered, so it survives when the remote record omits it.
func (s *Submission) MergeRemote(remote *Submission) *Submission {
	rec := remote.Record
	if rec.RedirectURL == "" {
		rec.RedirectURL = s.RedirectURL
	}
	rec.Documents = append([]Document(nil), rec.Documents...)
	return &Submission{Record: rec, api: s.api}
}

// IsVerified reports whether the submission completed successfully
func (s *Submission) IsVerified() bool {
	return s.State == StateCompleted
}

// Refresh fetches the current state of this submission
func (s *Submission) Refresh(ctx context.Context) (*Submission, error) {
	if s.api == nil {
		return nil, fmt.Errorf("kyc %s has no API: %w", s.ID, domain.ErrInvalidState)
	}
	var rec Record
	if err := s.api.AuthGET(ctx, kycPath+"/"+s.ID, nil, &rec); err != nil {
		return nil, fmt.Errorf("failed to refresh kyc %s: %w", s.ID, err)
	}
	return s.MergeRemote(NewSubmission(rec, s.api)), nil
}

// Service starts and lists verifications
type Service struct {
	api domain.API
	log zerolog.Logger
}

// NewService creates a KYC service
func NewService(api domain.API, log zerolog.Logger) *Service {
	return &Service{
		api: api,
		log: log.With().Str("service", "kyc").Logger(),
	}
}

// Trigger starts a new verification
func (s *Service) Trigger(ctx context.Context) (*Submission, error) {
	var rec Record
	if err := s.api.AuthPOST(ctx, kycPath, nil, &rec); err != nil {
		return nil, fmt.Errorf("failed to trigger kyc: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("exchange returned a kyc submission without id")
	}

	s.log.Info().Str("kyc_id", rec.ID).Str("state", string(rec.State)).Msg("KYC triggered")
	return NewSubmission(rec, s.api), nil
}

// FetchAll lists every submission known to the exchange
func (s *Service) FetchAll(ctx context.Context) ([]*Submission, error) {
	var recs []Record
	if err := s.api.AuthGET(ctx, kycPath, nil, &recs); err != nil {
		return nil, fmt.Errorf("failed to fetch kyc submissions: %w", err)
	}

	out := make([]*Submission, 0, len(recs))
	for _, rec := range recs {
		out = append(out, NewSubmission(rec, s.api))
	}
	return out, nil
}
