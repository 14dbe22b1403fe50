package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"ridemate/internal/models"
	"ridemate/internal/repository"
	"ridemate/internal/stats"

	"github.com/oapi-codegen/nullable"
)

func newRideService(t *testing.T, remote *fakeRemote, n Notifier) *RideService {
	t.Helper()
	return NewRideService(remote.rideRepo(), rider("u1"), n)
}

func sampleRide() models.Ride {
	return models.Ride{StartLocation: "A", Destination: "B", Distance: 50, Duration: 1, Date: "2024-01-01"}
}

func TestRideService_AddUpdateDeleteTotals(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	s := newRideService(t, remote, nil)
	ctx := context.Background()

	ride, err := s.Add(ctx, sampleRide())
	if err != nil {
		t.Fatalf("Add() err=%v", err)
	}
	if ride.ID == "" || ride.UserID != "u1" {
		t.Fatalf("Add()=%+v, want generated id and owner u1", ride)
	}
	if got := stats.TotalDistance(s.Mine()); got != 50 {
		t.Fatalf("TotalDistance after add=%v, want 50", got)
	}

	if _, err := s.Update(ctx, ride.ID, models.RidePatch{Distance: nullable.NewNullableWithValue(70.0)}); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	if got := stats.TotalDistance(s.Mine()); got != 70 {
		t.Fatalf("TotalDistance after update=%v, want 70", got)
	}
	if got := remote.rideList(); got[0].Distance != 70 || got[0].Destination != "B" {
		t.Fatalf("remote ride=%+v, want distance 70 and untouched destination", got[0])
	}

	if err := s.Remove(ctx, ride.ID); err != nil {
		t.Fatalf("Remove() err=%v", err)
	}
	if got := stats.TotalDistance(s.Mine()); got != 0 {
		t.Fatalf("TotalDistance after delete=%v, want 0", got)
	}
	if got := remote.rideList(); len(got) != 0 {
		t.Fatalf("remote rides=%d, want 0", len(got))
	}
}

func TestRideService_AddThenRemoveKeepsLength(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	remote.rides = []models.Ride{{ID: "r0", UserID: "u1", StartLocation: "X", Destination: "Y", Date: "2024-01-01"}}
	s := newRideService(t, remote, nil)
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() err=%v", err)
	}
	before := len(s.Mine())

	ride, err := s.Add(ctx, sampleRide())
	if err != nil {
		t.Fatalf("Add() err=%v", err)
	}
	if err := s.Remove(ctx, ride.ID); err != nil {
		t.Fatalf("Remove() err=%v", err)
	}
	if got := len(s.Mine()); got != before {
		t.Fatalf("len(Mine())=%d, want %d", got, before)
	}
}

func TestRideService_Projections(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	remote.rides = []models.Ride{
		{ID: "1", UserID: "u1", Distance: 10},
		{ID: "2", UserID: "u2", Distance: 20},
		{ID: "3", UserID: "u1", Distance: 30},
	}
	s := newRideService(t, remote, nil)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() err=%v", err)
	}
	if got := len(s.All()); got != 3 {
		t.Fatalf("len(All())=%d, want 3", got)
	}
	mine := s.Mine()
	if len(mine) != 2 || mine[0].ID != "1" || mine[1].ID != "3" {
		t.Fatalf("Mine()=%+v, want rides 1 and 3 in order", mine)
	}
	if got := s.ByUser("u2"); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("ByUser(u2)=%+v", got)
	}

	if _, err := s.Update(context.Background(), "2", models.RidePatch{Notes: nullable.NewNullableWithValue("mine now")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(other rider) err=%v, want ErrNotFound", err)
	}
}

func TestRideService_RollsBackFailedWrite(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	rec := &recorder{}
	s := newRideService(t, remote, rec)
	ctx := context.Background()

	remote.failNext(http.StatusInternalServerError, 2)
	_, err := s.Add(ctx, sampleRide())

	var netErr *repository.NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Add() err=%v, want NetworkError 500", err)
	}
	if got := len(s.Mine()); got != 0 {
		t.Fatalf("len(Mine())=%d, want 0 after rollback", got)
	}
	if got := remote.writeCount(); got != 2 {
		t.Fatalf("writes=%d, want 2 (one retry)", got)
	}
	if n := rec.notified(); len(n) != 1 {
		t.Fatalf("notifications=%v, want one", n)
	}
}

func TestRideService_RetrySucceeds(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	s := newRideService(t, remote, nil)

	remote.failNext(http.StatusServiceUnavailable, 1)
	ride, err := s.Add(context.Background(), sampleRide())
	if err != nil {
		t.Fatalf("Add() err=%v", err)
	}
	if got := remote.rideList(); len(got) != 1 || got[0].ID != ride.ID {
		t.Fatalf("remote rides=%+v, want the new ride", got)
	}
}

func TestRideService_UpdateRollback(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	s := newRideService(t, remote, nil)
	ctx := context.Background()

	ride, err := s.Add(ctx, sampleRide())
	if err != nil {
		t.Fatalf("Add() err=%v", err)
	}

	remote.failNext(http.StatusBadRequest, 1)
	if _, err := s.Update(ctx, ride.ID, models.RidePatch{Distance: nullable.NewNullableWithValue(99.0)}); err == nil {
		t.Fatalf("Update() err=nil, want failure")
	}
	got, err := s.Get(ride.ID)
	if err != nil || got.Distance != 50 {
		t.Fatalf("Get()=%+v err=%v, want distance restored to 50", got, err)
	}
}

func TestRideService_Validation(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t)
	s := newRideService(t, remote, nil)

	bad := sampleRide()
	bad.Destination = " "
	_, err := s.Add(context.Background(), bad)

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "destination" {
		t.Fatalf("Add() err=%v, want ValidationError on destination", err)
	}
	if remote.writeCount() != 0 {
		t.Fatalf("writes=%d, want none", remote.writeCount())
	}

	signedOut := NewRideService(remote.rideRepo(), staticIdentity{}, nil)
	if _, err := signedOut.Add(context.Background(), sampleRide()); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("Add() signed out err=%v, want ErrNotLoggedIn", err)
	}
}
