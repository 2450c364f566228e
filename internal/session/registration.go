package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/unocoin/internal/clients/unocoin"
)

// RegistrationResult is the response to a registration request
type RegistrationResult struct {
	Result       string `json:"result"`
	OfflineToken string `json:"access_token"`
	Message      string `json:"message,omitempty"`
	StatusCode   int    `json:"status_code,omitempty"`
}

// RegistrationPolicy decides whether a failed registration call may be treated as a success.
// When it absorbs err, it returns the result to continue signup with.
type RegistrationPolicy interface {
	Absorb(err error) (RegistrationResult, bool)
}

// RegistrationMode names a built-in policy
type RegistrationMode string

const (
	// ModeStrict propagates every registration failure
	ModeStrict RegistrationMode = "strict"
	// ModeAlreadyRegistered absorbs failures saying the email is already registered
	ModeAlreadyRegistered RegistrationMode = "already-registered"
	// ModeAny absorbs every failure except caller cancellation
	ModeAny RegistrationMode = "any"
)

type modePolicy struct {
	mode     RegistrationMode
	fallback RegistrationResult
}

// StrictPolicy never absorbs
func StrictPolicy() RegistrationPolicy {
	return modePolicy{mode: ModeStrict}
}

// AlreadyRegisteredPolicy absorbs "already registered" rejections and resolves them to fallback
func AlreadyRegisteredPolicy(fallback RegistrationResult) RegistrationPolicy {
	return modePolicy{mode: ModeAlreadyRegistered, fallback: fallback}
}

// AbsorbAllPolicy resolves every registration failure to fallback
func AbsorbAllPolicy(fallback RegistrationResult) RegistrationPolicy {
	return modePolicy{mode: ModeAny, fallback: fallback}
}

// PolicyFor returns the built-in policy for mode
func PolicyFor(mode RegistrationMode, fallback RegistrationResult) (RegistrationPolicy, error) {
	switch RegistrationMode(strings.ToLower(string(mode))) {
	case ModeStrict:
		return StrictPolicy(), nil
	case ModeAlreadyRegistered, "":
		return AlreadyRegisteredPolicy(fallback), nil
	case ModeAny:
		return AbsorbAllPolicy(fallback), nil
	}
	return nil, fmt.Errorf("unknown registration policy %q", mode)
}

func (p modePolicy) Absorb(err error) (RegistrationResult, bool) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return RegistrationResult{}, false
	}

	switch p.mode {
	case ModeAny:
		return p.fallback, true
	case ModeAlreadyRegistered:
		if apiErr, ok := unocoin.AsAPIError(err); ok && apiErr.IsAlreadyRegistered() {
			return p.fallback, true
		}
	}
	return RegistrationResult{}, false
}
