package handlers

import (
	"net/http"

	"ridemate/internal/models"
	"ridemate/internal/services"
	"ridemate/internal/units"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog/log"
)

// PreferenceSource returns the active rider's display preferences
type PreferenceSource interface {
	Preferences() models.Preferences
}

// RideHandler handles ride requests. Distances are read and written in the
// rider's display unit and stored in kilometers.
type RideHandler struct {
	rides *services.RideService
	prefs PreferenceSource
}

// NewRideHandler creates a new ride handler
func NewRideHandler(rides *services.RideService, prefs PreferenceSource) *RideHandler {
	return &RideHandler{rides: rides, prefs: prefs}
}

// ListMine handles GET /api/v1/rides
func (h *RideHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.display(h.rides.Mine()))
}

// ListAll handles GET /api/v1/rides/all
func (h *RideHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.display(h.rides.All()))
}

// ListByUser handles GET /api/v1/users/{user_id}/rides
func (h *RideHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.display(h.rides.ByUser(chi.URLParam(r, "user_id"))))
}

// CreateRide handles POST /api/v1/rides
func (h *RideHandler) CreateRide(w http.ResponseWriter, r *http.Request) {
	var req models.Ride
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Distance = units.ToKilometers(req.Distance, h.useMetric())

	ride, err := h.rides.Add(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Str("ride_id", ride.ID).Str("user_id", ride.UserID).Msg("Ride added")
	respondJSON(w, http.StatusCreated, h.display([]models.Ride{*ride})[0])
}

// UpdateRide handles PATCH /api/v1/rides/{id}
func (h *RideHandler) UpdateRide(w http.ResponseWriter, r *http.Request) {
	var patch models.RidePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Distance.IsSpecified() && !patch.Distance.IsNull() {
		km := units.ToKilometers(patch.Distance.MustGet(), h.useMetric())
		patch.Distance = nullable.NewNullableWithValue(km)
	}

	ride, err := h.rides.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.display([]models.Ride{*ride})[0])
}

// DeleteRide handles DELETE /api/v1/rides/{id}
func (h *RideHandler) DeleteRide(w http.ResponseWriter, r *http.Request) {
	if err := h.rides.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RideHandler) useMetric() bool {
	if h.prefs == nil {
		return true
	}
	return h.prefs.Preferences().UseMetric
}

// display converts copies of the rides to the display unit
func (h *RideHandler) display(rides []models.Ride) []models.Ride {
	useMetric := h.useMetric()
	out := make([]models.Ride, len(rides))
	for i, ride := range rides {
		ride.Distance = units.ToDisplayUnit(ride.Distance, useMetric)
		out[i] = ride
	}
	return out
}
