package handlers

import (
	"net/http"

	"ridemate/internal/services"
	"ridemate/internal/theme"
)

// SettingsHandler handles display preference requests
type SettingsHandler struct {
	session *services.SessionStore
	theme   *theme.Context
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(session *services.SessionStore, themeCtx *theme.Context) *SettingsHandler {
	return &SettingsHandler{session: session, theme: themeCtx}
}

// SettingsResponse is the body of the settings endpoints
type SettingsResponse struct {
	AccentColor string         `json:"accent_color"`
	AccentHSL   string         `json:"accent_hsl"`
	UseMetric   bool           `json:"use_metric"`
	Mode        theme.Mode     `json:"mode"`
	Presets     []theme.Preset `json:"presets"`
}

// UpdateSettingsRequest is the body of PUT /api/v1/settings. Absent fields are left alone.
type UpdateSettingsRequest struct {
	AccentColor *string `json:"accent_color"`
	UseMetric   *bool   `json:"use_metric"`
	Mode        *string `json:"mode"`
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.current())
}

// UpdateSettings handles PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if req.Mode != nil {
		if err := h.theme.SetMode(theme.Mode(*req.Mode)); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.AccentColor != nil {
		if err := h.session.SetAccentColor(ctx, *req.AccentColor); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}
	if req.UseMetric != nil {
		if err := h.session.SetUseMetric(ctx, *req.UseMetric); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, h.current())
}

func (h *SettingsHandler) current() SettingsResponse {
	prefs := h.session.Preferences()
	return SettingsResponse{
		AccentColor: prefs.AccentColor,
		AccentHSL:   theme.HexToHSL(prefs.AccentColor),
		UseMetric:   prefs.UseMetric,
		Mode:        h.theme.Vars().Mode,
		Presets:     theme.AccentPresets,
	}
}
