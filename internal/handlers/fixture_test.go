package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ridemate/internal/identity"
	"ridemate/internal/localstate"
	"ridemate/internal/middleware"
	"ridemate/internal/models"
	"ridemate/internal/repository"
	"ridemate/internal/services"
	"ridemate/internal/theme"

	"github.com/go-chi/chi/v5"
)

var appNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// backend serves the remote REST endpoints from memory
type backend struct {
	mu       sync.Mutex
	rides    []models.Ride
	posts    []models.Post
	sos      []models.SOSContact
	settings map[string]models.Settings
	saved    []models.Settings

	srv *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	b := &backend{settings: map[string]models.Settings{}}
	r := chi.NewRouter()

	r.Get("/getSettings", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.settings[r.URL.Query().Get("userId")])
	})
	r.Post("/userSettings", b.write(func(body []byte) error {
		var s models.Settings
		if err := json.Unmarshal(body, &s); err != nil {
			return err
		}
		b.saved = append(b.saved, s)
		b.settings[s.UserID] = s
		return nil
	}))

	r.Get("/getRide", b.list(func() interface{} { return b.rides }))
	r.Post("/addRide", b.write(func(body []byte) error {
		var ride models.Ride
		err := json.Unmarshal(body, &ride)
		b.rides = append(b.rides, ride)
		return err
	}))
	r.Put("/updateRide", b.write(func(body []byte) error {
		var u models.RideUpdate
		if err := json.Unmarshal(body, &u); err != nil {
			return err
		}
		for i := range b.rides {
			if b.rides[i].ID == u.ID {
				b.rides[i] = u.RidePatch.Apply(b.rides[i])
			}
		}
		return nil
	}))

	r.Get("/getExpense", b.list(func() interface{} { return []models.Expense{} }))

	r.Get("/getPosts", b.list(func() interface{} { return b.posts }))
	r.Post("/createPost", b.write(func(body []byte) error {
		var p models.Post
		err := json.Unmarshal(body, &p)
		b.posts = append([]models.Post{p}, b.posts...)
		return err
	}))
	r.Put("/updatePost", b.write(func(body []byte) error {
		var u models.PostUpdate
		if err := json.Unmarshal(body, &u); err != nil {
			return err
		}
		for i := range b.posts {
			if b.posts[i].ID == u.ID {
				b.posts[i] = u.PostPatch.Apply(b.posts[i])
			}
		}
		return nil
	}))

	r.Get("/getsos", b.list(func() interface{} { return b.sos }))
	r.Post("/addsos", b.write(func(body []byte) error {
		var c models.SOSContact
		err := json.Unmarshal(body, &c)
		b.sos = append(b.sos, c)
		return err
	}))
	r.Delete("/deletesos", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		b.write(func([]byte) error {
			kept := b.sos[:0:0]
			for _, c := range b.sos {
				if c.ID != id {
					kept = append(kept, c)
				}
			}
			b.sos = kept
			return nil
		})(w, r)
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) list(items func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(items())
	}
}

func (b *backend) write(apply func(body []byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := apply(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (b *backend) savedSettings() []models.Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Settings(nil), b.saved...)
}

func (b *backend) storedRide(id string) models.Ride {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.rides {
		if r.ID == id {
			return r
		}
	}
	return models.Ride{}
}

func (b *backend) storedPost(id string) models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		if p.ID == id {
			return p
		}
	}
	return models.Post{}
}

// provider accepts ana@example.com / Secret1! and refuses everyone else
type provider struct{}

func (provider) SignIn(_ context.Context, username, password string) (*identity.Tokens, error) {
	if username != "ana@example.com" || password != "Secret1!" {
		return nil, &identity.ProviderError{Reason: identity.ReasonInvalidCredentials, Err: errors.New("incorrect username or password")}
	}
	return &identity.Tokens{AccessToken: "access-ana", RefreshToken: "refresh-ana", ExpiresAt: appNow.Add(time.Hour)}, nil
}

func (provider) SignUp(_ context.Context, username, _ string, _ map[string]string) error {
	if username == "taken@example.com" {
		return &identity.ProviderError{Reason: identity.ReasonUserExists, Err: errors.New("user already exists")}
	}
	return nil
}

func (provider) SignOut(context.Context, string) error { return nil }

func (provider) Refresh(context.Context, string, string) (*identity.Tokens, error) {
	return nil, errors.New("refresh not supported")
}

func (provider) GetCurrentUser(context.Context, string) (*identity.User, error) {
	return &identity.User{UserID: "u1", Username: "ana"}, nil
}

func (provider) FetchUserAttributes(context.Context, string) (map[string]string, error) {
	return map[string]string{"email": "ana@example.com", "name": "Ana"}, nil
}

func (provider) UpdateUserAttributes(context.Context, string, map[string]string) error { return nil }

type uploads struct {
	mu    sync.Mutex
	keys  []string
	types []string
}

func (u *uploads) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	return "https://media.example.com/" + key, nil
}

// app is the local API wired the way cmd wires it, against a backend
type app struct {
	router  http.Handler
	remote  *backend
	media   *uploads
	session *services.SessionStore
}

func newApp(t *testing.T, seed func(*backend)) *app {
	t.Helper()

	remote := newBackend(t)
	if seed != nil {
		seed(remote)
	}

	state, err := localstate.Open(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	themeCtx := theme.New(state)
	clock := fixedClock{now: appNow}
	client := remote.srv.Client()
	media := &uploads{}

	session := services.NewSessionStore(provider{}, repository.NewSettingsRepository(remote.srv.URL, client), state, themeCtx, clock)
	rides := services.NewRideService(repository.NewRideRepository(remote.srv.URL, client), session, nil)
	expenses := services.NewExpenseService(repository.NewExpenseRepository(remote.srv.URL, client), session, nil)
	posts := services.NewPostService(repository.NewPostRepository(remote.srv.URL, client), media, session, nil, clock)
	sos := services.NewSOSService(repository.NewSOSRepository(remote.srv.URL, client), session, nil, "+91")
	services.BindCollections(session, rides, expenses, posts, sos)
	session.Initialize(context.Background())

	sessionHandler := NewSessionHandler(session)
	settingsHandler := NewSettingsHandler(session, themeCtx)
	rideHandler := NewRideHandler(rides, session)
	postHandler := NewPostHandler(posts)
	sosHandler := NewSOSHandler(sos)
	statsHandler := NewStatsHandler(session, rides, expenses, posts, clock)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session/login", sessionHandler.Login)
		r.Post("/session/signup", sessionHandler.Signup)
		r.Post("/session/logout", sessionHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(session))

			r.Get("/settings", settingsHandler.GetSettings)
			r.Put("/settings", settingsHandler.UpdateSettings)
			r.Get("/rides", rideHandler.ListMine)
			r.Post("/rides", rideHandler.CreateRide)
			r.Patch("/rides/{id}", rideHandler.UpdateRide)
			r.Get("/posts", postHandler.ListPosts)
			r.Post("/posts", postHandler.CreatePost)
			r.Patch("/posts/{id}", postHandler.EditPost)
			r.Post("/posts/{id}/like", postHandler.LikePost)
			r.Post("/posts/{id}/comments", postHandler.CommentPost)
			r.Get("/sos", sosHandler.ListContacts)
			r.Post("/sos", sosHandler.CreateContact)
			r.Delete("/sos/{id}", sosHandler.DeleteContact)
			r.Get("/stats/dashboard", statsHandler.GetDashboard)
			r.Get("/stats/overview", statsHandler.GetOverview)
		})
	})

	return &app{router: r, remote: remote, media: media, session: session}
}

// do sends a JSON request to the local API
func (a *app) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// send serves a prepared request
func (a *app) send(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) login(t *testing.T) {
	t.Helper()
	w := a.do(http.MethodPost, "/api/v1/session/login", `{"email":"ana@example.com","password":"Secret1!"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", w.Code, w.Body.String())
	}
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s err=%v", w.Body.String(), err)
	}
	return v
}
