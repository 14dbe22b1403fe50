package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ridemate/internal/models"
)

// SOSRepository talks to the emergency contacts endpoint
type SOSRepository struct {
	c *client
}

// NewSOSRepository creates a new SOS contact repository
func NewSOSRepository(baseURL string, httpClient *http.Client) *SOSRepository {
	return &SOSRepository{c: newClient(baseURL, httpClient)}
}

// List retrieves all stored contacts
func (r *SOSRepository) List(ctx context.Context) ([]models.SOSContact, error) {
	var contacts []models.SOSContact
	if err := r.c.do(ctx, "list sos contacts", http.MethodGet, "getsos", nil, nil, &contacts); err != nil {
		return nil, fmt.Errorf("failed to list sos contacts: %w", err)
	}
	return contacts, nil
}

// Create stores a new contact
func (r *SOSRepository) Create(ctx context.Context, contact models.SOSContact) error {
	if err := r.c.do(ctx, "create sos contact", http.MethodPost, "addsos", nil, contact, nil); err != nil {
		return fmt.Errorf("failed to create sos contact: %w", err)
	}
	return nil
}

// Delete deletes a contact by ID
func (r *SOSRepository) Delete(ctx context.Context, id string) error {
	query := url.Values{"id": []string{id}}
	if err := r.c.do(ctx, "delete sos contact", http.MethodDelete, "deletesos", query, idBody{ID: id}, nil); err != nil {
		return fmt.Errorf("failed to delete sos contact: %w", err)
	}
	return nil
}
