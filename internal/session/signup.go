package session

import (
	"context"
	"fmt"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/events"
)

const registerPath = "api/v1/authentication/register"

type registerRequest struct {
	EmailID string `json:"email_id"`
}

// Signup registers the delegate's verified email with the exchange and stores the resulting
// offline token. Preconditions are checked before anything is sent. A failed save is returned
// after the credential is already held in memory.
func (s *Session) Signup(ctx context.Context) (*RegistrationResult, error) {
	email, err := s.beginSignup()
	if err != nil {
		return nil, err
	}
	defer s.endSignup()

	emailToken, err := s.delegate.GetToken(ctx, domain.ProviderName, domain.TokenOptions{WalletAge: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get email token: %w", err)
	}
	if emailToken == "" {
		return nil, domain.ErrMissingToken
	}

	var res RegistrationResult
	absorbed := false
	err = s.api.POST(ctx, registerPath, registerRequest{EmailID: email},
		map[string]string{"Authorization": "Bearer " + emailToken}, &res)
	if err != nil {
		fallback, ok := s.policy.Absorb(err)
		if !ok {
			return nil, fmt.Errorf("registration failed: %w", err)
		}
		s.log.Warn().Err(err).Msg("Registration failed, continuing with fallback result")
		res = fallback
		absorbed = true
	}
	if res.OfflineToken == "" {
		return nil, fmt.Errorf("registration returned no offline token: %w", domain.ErrMissingToken)
	}

	s.mu.Lock()
	s.user = email
	s.offlineToken = res.OfflineToken
	s.api.SetOfflineToken(res.OfflineToken)
	s.mu.Unlock()

	s.log.Info().Str("user", email).Bool("absorbed", absorbed).Msg("Account registered")
	s.events.EmitTyped(moduleName, &events.AccountRegisteredData{User: email, Absorbed: absorbed})

	if err := s.delegate.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &res, nil
}

// beginSignup checks the preconditions and marks a signup as running
func (s *Session) beginSignup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.user != "":
		return "", fmt.Errorf("already signed up: %w", domain.ErrInvalidState)
	case s.signingUp:
		return "", fmt.Errorf("signup already in progress: %w", domain.ErrInvalidState)
	case s.delegate == nil:
		return "", fmt.Errorf("identity delegate required: %w", domain.ErrInvalidState)
	}

	email := s.delegate.Email()
	if email == "" {
		return "", fmt.Errorf("email required: %w", domain.ErrInvalidState)
	}
	if !s.delegate.IsEmailVerified() {
		return "", fmt.Errorf("email must be verified: %w", domain.ErrInvalidState)
	}

	s.signingUp = true
	return email, nil
}

func (s *Session) endSignup() {
	s.mu.Lock()
	s.signingUp = false
	s.mu.Unlock()
}
