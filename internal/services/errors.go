package services

import (
	"errors"
	"fmt"

	"ridemate/internal/identity"
)

var (
	// ErrNotLoggedIn is returned by operations that need an identity
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNotFound is returned when a record is not in the local collection
	ErrNotFound = errors.New("not found")
)

// AuthError is returned when the identity provider rejects a request
type AuthError struct {
	Op     string
	Reason identity.Reason
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(op string, err error) *AuthError {
	return &AuthError{Op: op, Reason: identity.ReasonOf(err), Err: err}
}

// ValidationError is returned when input is rejected before any remote call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
