package domain

import "errors"

// Precondition failures. They are always raised before any remote call is made.
var (
	// ErrInvalidState is returned when an operation is not allowed in the session's current state
	// (already signed up, missing delegate, unverified email).
	ErrInvalidState = errors.New("invalid state")

	// ErrMissingToken is returned when the identity delegate produced no email-proof token,
	// or a registration resolved without an offline token.
	ErrMissingToken = errors.New("email token missing")

	// ErrInvalidArgument is returned for missing or malformed arguments (nil quote, nil bank account).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrQuoteExpired is returned when a quote is used at or after its expiry instant.
	ErrQuoteExpired = errors.New("QUOTE_EXPIRED")

	// ErrNotAuthenticated is returned when an authenticated request is attempted without an offline token.
	ErrNotAuthenticated = errors.New("not authenticated")
)
