package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ridemate/internal/models"
)

// SettingsRepository talks to the user settings endpoint
type SettingsRepository struct {
	c *client
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(baseURL string, httpClient *http.Client) *SettingsRepository {
	return &SettingsRepository{c: newClient(baseURL, httpClient)}
}

// Get retrieves the stored settings of a user. Missing fields stay empty.
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*models.Settings, error) {
	query := url.Values{"userId": []string{userID}}
	var settings models.Settings
	if err := r.c.do(ctx, "get settings", http.MethodGet, "getSettings", query, nil, &settings); err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

// Save writes the full settings object
func (r *SettingsRepository) Save(ctx context.Context, settings models.Settings) error {
	if err := r.c.do(ctx, "save settings", http.MethodPost, "userSettings", nil, settings, nil); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
