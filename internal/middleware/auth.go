package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"ridemate/internal/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// IdentitySource reports the signed-in identity
type IdentitySource interface {
	Identity() *models.Identity
	Loading() bool
}

// RequireSession rejects requests while nobody is signed in
func RequireSession(session IdentitySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.Loading() {
				w.Header().Set("Retry-After", "1")
				respondError(w, "session is loading", http.StatusServiceUnavailable)
				return
			}

			id := session.Identity()
			if id == nil {
				respondError(w, "not logged in", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, id.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
