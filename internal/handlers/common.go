package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ridemate/internal/repository"
	"ridemate/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondServiceError maps a service error to a status code
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *services.ValidationError
		auth       *services.AuthError
		network    *repository.NetworkError
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &auth):
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: auth.Error()})
	case errors.Is(err, services.ErrNotLoggedIn):
		respondError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &network):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Remote request failed")
		respondError(w, err.Error(), http.StatusBadGateway)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeJSON decodes the request body, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
