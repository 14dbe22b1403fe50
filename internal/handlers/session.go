package handlers

import (
	"net/http"

	"ridemate/internal/models"
	"ridemate/internal/services"

	"github.com/rs/zerolog/log"
)

// SessionHandler handles sign-in, sign-up and profile requests
type SessionHandler struct {
	session *services.SessionStore
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session *services.SessionStore) *SessionHandler {
	return &SessionHandler{session: session}
}

// LoginRequest is the body of POST /api/v1/session/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	Identity *models.Identity   `json:"identity"`
	Loading  bool               `json:"loading"`
	Prefs    models.Preferences `json:"preferences"`
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.current())
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.session.Login(r.Context(), req.Email, req.Password); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Login failed")
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.current())
}

// Signup handles POST /api/v1/session/signup
func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.session.Signup(r.Context(), req); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Signup failed")
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// UpdateProfile handles PATCH /api/v1/session/profile
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch models.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	id, err := h.session.UpdateProfile(r.Context(), patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, id)
}

func (h *SessionHandler) current() SessionResponse {
	return SessionResponse{
		Identity: h.session.Identity(),
		Loading:  h.session.Loading(),
		Prefs:    h.session.Preferences(),
	}
}
