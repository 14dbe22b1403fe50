package repository

import (
	"context"
	"fmt"
	"net/http"

	"ridemate/internal/models"
)

// RideRepository talks to the rides endpoint
type RideRepository struct {
	c *client
}

// NewRideRepository creates a new ride repository
func NewRideRepository(baseURL string, httpClient *http.Client) *RideRepository {
	return &RideRepository{c: newClient(baseURL, httpClient)}
}

// List retrieves every ride from every user
func (r *RideRepository) List(ctx context.Context) ([]models.Ride, error) {
	var rides []models.Ride
	if err := r.c.do(ctx, "list rides", http.MethodGet, "getRide", nil, nil, &rides); err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	return rides, nil
}

// Create stores a new ride
func (r *RideRepository) Create(ctx context.Context, ride models.Ride) error {
	if err := r.c.do(ctx, "create ride", http.MethodPost, "addRide", nil, ride, nil); err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}
	return nil
}

// Update sends the changed ride fields keyed by id
func (r *RideRepository) Update(ctx context.Context, update models.RideUpdate) error {
	if err := r.c.do(ctx, "update ride", http.MethodPut, "updateRide", nil, update, nil); err != nil {
		return fmt.Errorf("failed to update ride: %w", err)
	}
	return nil
}

// Delete deletes a ride by ID
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	if err := r.c.do(ctx, "delete ride", http.MethodDelete, "deleteRide", nil, idBody{ID: id}, nil); err != nil {
		return fmt.Errorf("failed to delete ride: %w", err)
	}
	return nil
}

type idBody struct {
	ID string `json:"id"`
}
