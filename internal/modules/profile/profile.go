// Package profile provides the exchange user profile.
package profile

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aristath/unocoin/internal/domain"
)

const profilePath = "api/v1/settings/user_profile"

// Limits are the per-day trading limits granted at the current verification level
type Limits struct {
	DailyBuy  float64 `json:"daily_buy_limit"`
	DailySell float64 `json:"daily_sell_limit"`
}

// Profile is the user profile as reported by the exchange
type Profile struct {
	Name              string `json:"name"`
	Email             string `json:"email_id"`
	Mobile            string `json:"mobile,omitempty"`
	Country           string `json:"country,omitempty"`
	VerificationLevel int    `json:"verification_level"`
	Limits            Limits `json:"limits"`
}

// Service fetches the profile and holds the last fetched copy. Until the first successful
// fetch there is no profile at all.
type Service struct {
	api     domain.API
	log     zerolog.Logger
	current atomic.Pointer[Profile]
}

// NewService creates a profile service
func NewService(api domain.API, log zerolog.Logger) *Service {
	return &Service{
		api: api,
		log: log.With().Str("service", "profile").Logger(),
	}
}

// Fetch loads the profile from the exchange and stores it
func (s *Service) Fetch(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := s.api.AuthGET(ctx, profilePath, nil, &p); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	s.current.Store(&p)
	s.log.Debug().Int("verification_level", p.VerificationLevel).Msg("Profile fetched")

	out := p
	return &out, nil
}

// Current returns a copy of the last fetched profile. ok is false before the first fetch.
func (s *Service) Current() (p *Profile, ok bool) {
	cur := s.current.Load()
	if cur == nil {
		return nil, false
	}
	out := *cur
	return &out, true
}
