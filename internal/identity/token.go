package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields read from a provider-issued token
type Claims struct {
	Subject   string
	Username  string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// ParseToken decodes a provider-issued JWT without verifying its signature.
// The token came straight from the provider over TLS and is only used to read
// the session's own claims; the remote endpoints verify it themselves.
func ParseToken(tokenString string) (*Claims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	out := &Claims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	out.Email, _ = claims["email"].(string)
	out.Name, _ = claims["name"].(string)
	if username, ok := claims["cognito:username"].(string); ok {
		out.Username = username
	} else if username, ok := claims["username"].(string); ok {
		out.Username = username
	}

	return out, nil
}

// Expired reports whether the token is unreadable or expires within a minute of now
func Expired(tokenString string, now time.Time) bool {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return true
	}
	if claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(time.Minute).Before(claims.ExpiresAt)
}
