package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ridemate/internal/models"
	"ridemate/internal/repository"
	"ridemate/internal/services"

	"github.com/go-chi/chi/v5"
)

func TestRespondServiceError_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.ValidationError{Field: "name", Message: "is required"}, http.StatusBadRequest},
		{"auth", &services.AuthError{Op: "login", Reason: "invalid_credentials", Err: errors.New("nope")}, http.StatusUnauthorized},
		{"not logged in", fmt.Errorf("wrapped: %w", services.ErrNotLoggedIn), http.StatusUnauthorized},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"network", fmt.Errorf("failed to add ride: %w", &repository.NetworkError{Op: "create ride", StatusCode: 500}), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/x", nil)
			respondServiceError(w, r, tt.err)

			if w.Code != tt.want {
				t.Fatalf("status=%d, want %d", w.Code, tt.want)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Fatalf("body=%s err=%v", w.Body.String(), err)
			}
		})
	}
}

type fixedIdentity struct{ id string }

func (f fixedIdentity) Identity() *models.Identity {
	return &models.Identity{ID: f.id, Name: "Rider"}
}

// newRideRouter serves the ride routes against an in-memory ride endpoint
func newRideRouter(t *testing.T) http.Handler {
	t.Helper()

	var (
		mu    sync.Mutex
		store []models.Ride
	)
	remote := chi.NewRouter()
	remote.Get("/getRide", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewEncoder(w).Encode(store)
	})
	remote.Post("/addRide", func(w http.ResponseWriter, r *http.Request) {
		var ride models.Ride
		json.NewDecoder(r.Body).Decode(&ride)
		mu.Lock()
		store = append(store, ride)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	remote.Delete("/deleteRide", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	rides := services.NewRideService(repository.NewRideRepository(srv.URL, srv.Client()), fixedIdentity{id: "u1"}, nil)
	h := NewRideHandler(rides, nil)

	r := chi.NewRouter()
	r.Get("/rides", h.ListMine)
	r.Post("/rides", h.CreateRide)
	r.Delete("/rides/{id}", h.DeleteRide)
	return r
}

func TestRideHandler_CreateAndList(t *testing.T) {
	t.Parallel()

	router := newRideRouter(t)

	body := `{"startLocation":"Pune","destination":"Lonavala","distance":64.5,"duration":1.5,"date":"2024-02-10"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /rides status=%d body=%s", w.Code, w.Body.String())
	}
	var created models.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.UserID != "u1" || created.ID == "" {
		t.Fatalf("created=%+v err=%v", created, err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rides", nil))
	var listed []models.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("GET /rides=%s err=%v", w.Body.String(), err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(`{"destination":"x"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /rides invalid status=%d, want 400", w.Code)
	}
}

func TestRideHandler_DeleteFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	router := newRideRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rides",
		strings.NewReader(`{"startLocation":"A","destination":"B","distance":1,"duration":1,"date":"2024-01-01"}`)))
	var created models.Ride
	json.Unmarshal(w.Body.Bytes(), &created)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rides/"+created.ID, nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("DELETE status=%d, want 502", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rides", nil))
	var listed []models.Ride
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed) != 1 {
		t.Fatalf("rides after failed delete=%d, want 1 (rolled back)", len(listed))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/rides/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("DELETE unknown status=%d, want 404", w.Code)
	}
}
