package handlers

import (
	"net/http"

	"ridemate/internal/services"

	"github.com/go-chi/chi/v5"
)

// SOSHandler handles emergency contact requests
type SOSHandler struct {
	sos *services.SOSService
}

// NewSOSHandler creates a new SOS contact handler
func NewSOSHandler(sos *services.SOSService) *SOSHandler {
	return &SOSHandler{sos: sos}
}

// CreateContactRequest is the body of POST /api/v1/sos
type CreateContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ListContacts handles GET /api/v1/sos
func (h *SOSHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sos.List())
}

// CreateContact handles POST /api/v1/sos
func (h *SOSHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.sos.Add(r.Context(), req.Name, req.Phone)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, contact)
}

// DeleteContact handles DELETE /api/v1/sos/{id}
func (h *SOSHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.sos.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
