package goCatalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the umbrella error for every authentication or authorization refusal.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	// ErrInvalidToken is returned for expired, forged, malformed, or wrong-kind tokens.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	// ErrForbidden is returned by Authorize when the token lacks the required role.
	ErrForbidden = fmt.Errorf("%w: forbidden", ErrUnauthorized)
	// ErrLoginRateLimited is returned by Login once the failed-attempt budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned by Refresh once the per-subject budget is spent.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrDuplicateKey is returned when a SKU, username, or email is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound is returned when a product or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for requests failing field validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownRole is returned when a role is not in the configured role set.
	ErrUnknownRole = errors.New("unknown role")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrCacheUnavailable is returned by OnCatalogMutation when the cache could not be invalidated.
	ErrCacheUnavailable = errors.New("query cache unavailable")
)

// ValidationError reports which request field failed validation. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
