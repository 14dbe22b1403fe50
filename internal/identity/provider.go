// Package identity wraps the managed identity provider used to sign riders in.
package identity

import (
	"context"
	"errors"
	"time"
)

// Reason classifies why the provider refused a request
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonUserExists         Reason = "user_exists"
	ReasonWeakPassword       Reason = "weak_password"
	ReasonNotConfirmed       Reason = "not_confirmed"
	ReasonUserNotFound       Reason = "user_not_found"
	ReasonInvalidParameter   Reason = "invalid_parameter"
	ReasonChallenge          Reason = "challenge_required"
	ReasonUnknown            Reason = "unknown"
)

// ProviderError is returned when the provider answers but rejects the request
type ProviderError struct {
	Reason Reason
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the rejection reason of err, or ReasonUnknown
func ReasonOf(err error) Reason {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonUnknown
}

// Tokens is the session issued after a successful sign-in
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// User is the provider's view of the signed-in account
type User struct {
	UserID   string
	Username string
}

// Provider is the identity service contract the session store relies on
type Provider interface {
	SignIn(ctx context.Context, username, password string) (*Tokens, error)
	SignUp(ctx context.Context, username, password string, attributes map[string]string) error
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error)
	GetCurrentUser(ctx context.Context, accessToken string) (*User, error)
	FetchUserAttributes(ctx context.Context, accessToken string) (map[string]string, error)
	UpdateUserAttributes(ctx context.Context, accessToken string, attributes map[string]string) error
}
