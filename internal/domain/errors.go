package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")

	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrUserAlreadyExists      = fmt.Errorf("user with this email already exists: %w", ErrConflict)
	ErrTokenExchangeFailed    = errors.New("token exchange failed")
	ErrProfileFetchFailed     = errors.New("profile fetch failed")
	ErrIncompleteProfile      = errors.New("incomplete profile")
	ErrInvalidCallbackPayload = errors.New("invalid callback payload")
	ErrMissingCallbackToken   = errors.New("missing callback token")
	ErrStateMismatch          = errors.New("oauth state mismatch")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ExchangeError is a failed call to an external provider. Raw holds the
// provider's response body, if one was read, for logging.
type ExchangeError struct {
	Stage error
	Raw   string
	Err   error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return e.Stage.Error() + ": " + e.Err.Error()
	}
	return e.Stage.Error()
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *ExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Stage}
	}
	return []error{e.Stage, e.Err}
}

// RedirectCode maps a browser login failure to the short reason code placed
// in the sign-in page query string.
func RedirectCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingCallbackToken):
		return "missing_token"
	case errors.Is(err, ErrInvalidCallbackPayload):
		return "invalid_user_data"
	case errors.Is(err, ErrTokenExchangeFailed):
		return "token_exchange_failed"
	case errors.Is(err, ErrProfileFetchFailed):
		return "profile_fetch_failed"
	case errors.Is(err, ErrIncompleteProfile):
		return "incomplete_profile"
	case errors.Is(err, ErrStateMismatch):
		return "state_mismatch"
	default:
		return "callback_failed"
	}
}
