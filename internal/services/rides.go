package services

import (
	"context"
	"fmt"
	"strings"

	"ridemate/internal/models"
	"ridemate/internal/repository"

	"github.com/google/uuid"
)

// RideService keeps the ride collection in sync with the ride endpoint. The
// store holds every rider's rides; Mine and ByUser are projections of it.
type RideService struct {
	repo    *repository.RideRepository
	session IdentitySource
	rides   *Collection[models.Ride]
}

// NewRideService creates a new ride service
func NewRideService(repo *repository.RideRepository, session IdentitySource, notifier Notifier) *RideService {
	return &RideService{
		repo:    repo,
		session: session,
		rides:   NewCollection("rides", func(r models.Ride) string { return r.ID }, notifier),
	}
}

// Refresh loads every rider's rides
func (s *RideService) Refresh(ctx context.Context) error {
	rides, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.rides.Replace(rides)
	return nil
}

// Reset forgets the cached rides
func (s *RideService) Reset() {
	s.rides.Reset()
}

// Mine returns the active rider's rides
func (s *RideService) Mine() []models.Ride {
	id := s.session.Identity()
	if id == nil {
		return []models.Ride{}
	}
	return s.ByUser(id.ID)
}

// All returns every rider's rides
func (s *RideService) All() []models.Ride {
	return s.rides.Snapshot()
}

// ByUser returns the rides of one rider
func (s *RideService) ByUser(userID string) []models.Ride {
	return s.rides.Filter(func(r models.Ride) bool { return r.UserID == userID })
}

// Get returns one ride
func (s *RideService) Get(id string) (*models.Ride, error) {
	ride, ok := s.rides.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &ride, nil
}

// Add logs a new ride for the active rider
func (s *RideService) Add(ctx context.Context, ride models.Ride) (*models.Ride, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}
	if err := validateRide(ride); err != nil {
		return nil, err
	}

	ride.ID = uuid.New().String()
	ride.UserID = id.ID

	undo := s.rides.Append(ride)
	err := s.rides.Commit(ctx, "add ride", ride.ID, undo, func(ctx context.Context) error {
		return s.repo.Create(ctx, ride)
	})
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// Update merges the patch into one of the active rider's rides
func (s *RideService) Update(ctx context.Context, rideID string, patch models.RidePatch) (*models.Ride, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}

	updated, undo, err := s.rides.Patch(rideID, func(r models.Ride) (models.Ride, Revert[models.Ride], error) {
		if r.UserID != id.ID {
			return r, nil, ErrNotFound
		}
		merged := patch.Apply(r)
		if err := validateRide(merged); err != nil {
			return r, nil, err
		}
		return merged, patch.Inverse(r).Apply, nil
	})
	if err != nil {
		return nil, err
	}

	err = s.rides.Commit(ctx, "update ride", rideID, undo, func(ctx context.Context) error {
		return s.repo.Update(ctx, models.RideUpdate{ID: rideID, RidePatch: patch})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove deletes one of the active rider's rides
func (s *RideService) Remove(ctx context.Context, rideID string) error {
	id := s.session.Identity()
	if id == nil {
		return ErrNotLoggedIn
	}
	if ride, ok := s.rides.Get(rideID); !ok || ride.UserID != id.ID {
		return ErrNotFound
	}

	_, undo, err := s.rides.Remove(rideID)
	if err != nil {
		return err
	}
	return s.rides.Commit(ctx, "delete ride", rideID, undo, func(ctx context.Context) error {
		return s.repo.Delete(ctx, rideID)
	})
}

func validateRide(r models.Ride) error {
	switch {
	case strings.TrimSpace(r.StartLocation) == "":
		return invalid("startLocation", "is required")
	case strings.TrimSpace(r.Destination) == "":
		return invalid("destination", "is required")
	case strings.TrimSpace(r.Date) == "":
		return invalid("date", "is required")
	case r.Distance < 0:
		return invalid("distance", fmt.Sprintf("must not be negative, got %v", r.Distance))
	case r.Duration < 0:
		return invalid("duration", fmt.Sprintf("must not be negative, got %v", r.Duration))
	}
	return nil
}
