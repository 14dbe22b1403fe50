package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ridemate/internal/identity"
	"ridemate/internal/models"
	"ridemate/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// fakeRemote serves the remote REST endpoints from memory
type fakeRemote struct {
	mu       sync.Mutex
	rides    []models.Ride
	expenses []models.Expense
	posts    []models.Post
	sos      []models.SOSContact
	settings map[string]models.Settings

	savedSettings []models.Settings
	postUpdates   []map[string]json.RawMessage
	writes        int
	failStatus    int
	failLeft      int
	held          *heldWrite

	srv *httptest.Server
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()

	f := &fakeRemote{settings: map[string]models.Settings{}}

	r := chi.NewRouter()
	r.Get("/getSettings", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		s, ok := f.settings[r.URL.Query().Get("userId")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, map[string]string{})
			return
		}
		writeJSON(w, s)
	})
	r.Post("/userSettings", f.write(func(body []byte) error {
		var s models.Settings
		if err := json.Unmarshal(body, &s); err != nil {
			return err
		}
		f.savedSettings = append(f.savedSettings, s)
		f.settings[s.UserID] = s
		return nil
	}))

	r.Get("/getRide", f.list(func() interface{} { return f.rides }))
	r.Post("/addRide", f.write(func(body []byte) error {
		var ride models.Ride
		if err := json.Unmarshal(body, &ride); err != nil {
			return err
		}
		f.rides = append(f.rides, ride)
		return nil
	}))
	r.Put("/updateRide", f.write(func(body []byte) error {
		var u models.RideUpdate
		if err := json.Unmarshal(body, &u); err != nil {
			return err
		}
		for i := range f.rides {
			if f.rides[i].ID == u.ID {
				f.rides[i] = u.RidePatch.Apply(f.rides[i])
			}
		}
		return nil
	}))
	r.Delete("/deleteRide", f.write(func(body []byte) error {
		id, err := idOf(body)
		f.rides = without(f.rides, func(r models.Ride) bool { return r.ID == id })
		return err
	}))

	r.Get("/getExpense", f.list(func() interface{} { return f.expenses }))
	r.Post("/addExpense", f.write(func(body []byte) error {
		var e models.Expense
		if err := json.Unmarshal(body, &e); err != nil {
			return err
		}
		f.expenses = append(f.expenses, e)
		return nil
	}))
	r.Put("/updateExpense", f.write(func(body []byte) error {
		var e models.Expense
		if err := json.Unmarshal(body, &e); err != nil {
			return err
		}
		for i := range f.expenses {
			if f.expenses[i].ID == e.ID {
				f.expenses[i] = e
			}
		}
		return nil
	}))
	r.Delete("/deleteExpense", f.write(func(body []byte) error {
		id, err := idOf(body)
		f.expenses = without(f.expenses, func(e models.Expense) bool { return e.ID == id })
		return err
	}))

	r.Get("/getPosts", f.list(func() interface{} { return f.posts }))
	r.Post("/createPost", f.write(func(body []byte) error {
		var p models.Post
		if err := json.Unmarshal(body, &p); err != nil {
			return err
		}
		f.posts = append([]models.Post{p}, f.posts...)
		return nil
	}))
	r.Put("/updatePost", f.write(func(body []byte) error {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return err
		}
		f.postUpdates = append(f.postUpdates, raw)

		var u models.PostUpdate
		if err := json.Unmarshal(body, &u); err != nil {
			return err
		}
		for i := range f.posts {
			if f.posts[i].ID == u.ID {
				f.posts[i] = u.PostPatch.Apply(f.posts[i])
			}
		}
		return nil
	}))
	r.Delete("/deletePost", f.write(func(body []byte) error {
		id, err := idOf(body)
		f.posts = without(f.posts, func(p models.Post) bool { return p.ID == id })
		return err
	}))

	r.Get("/getsos", f.list(func() interface{} { return f.sos }))
	r.Post("/addsos", f.write(func(body []byte) error {
		var c models.SOSContact
		if err := json.Unmarshal(body, &c); err != nil {
			return err
		}
		f.sos = append(f.sos, c)
		return nil
	}))
	r.Delete("/deletesos", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		f.write(func([]byte) error {
			f.sos = without(f.sos, func(c models.SOSContact) bool { return c.ID == id })
			return nil
		})(w, r)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

// failNext makes the next n writes answer with status
func (f *fakeRemote) failNext(status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus, f.failLeft = status, n
}

// heldWrite is a write that waits for release before answering with status
type heldWrite struct {
	status  int
	entered chan struct{}
	release chan struct{}
}

// holdNext parks the next write until release is called; it then fails with status
func (f *fakeRemote) holdNext(status int) (entered <-chan struct{}, release func()) {
	h := &heldWrite{status: status, entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.held = h
	f.mu.Unlock()
	return h.entered, func() { close(h.release) }
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeRemote) list(items func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, items())
	}
}

func (f *fakeRemote) write(apply func(body []byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		h := f.held
		f.held = nil
		f.mu.Unlock()
		if h != nil {
			close(h.entered)
			<-h.release
			f.mu.Lock()
			f.writes++
			f.mu.Unlock()
			w.WriteHeader(h.status)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes++
		if f.failLeft > 0 {
			f.failLeft--
			w.WriteHeader(f.failStatus)
			return
		}
		if err := apply(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	}
}

func (f *fakeRemote) rideRepo() *repository.RideRepository {
	return repository.NewRideRepository(f.srv.URL, f.srv.Client())
}

func (f *fakeRemote) expenseRepo() *repository.ExpenseRepository {
	return repository.NewExpenseRepository(f.srv.URL, f.srv.Client())
}

func (f *fakeRemote) postRepo() *repository.PostRepository {
	return repository.NewPostRepository(f.srv.URL, f.srv.Client())
}

func (f *fakeRemote) sosRepo() *repository.SOSRepository {
	return repository.NewSOSRepository(f.srv.URL, f.srv.Client())
}

func (f *fakeRemote) settingsRepo() *repository.SettingsRepository {
	return repository.NewSettingsRepository(f.srv.URL, f.srv.Client())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func idOf(body []byte) (string, error) {
	var b struct {
		ID string `json:"id"`
	}
	err := json.Unmarshal(body, &b)
	return b.ID, err
}

func without[T any](items []T, drop func(T) bool) []T {
	out := items[:0:0]
	for _, item := range items {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}

// staticIdentity is a fixed IdentitySource
type staticIdentity struct {
	id *models.Identity
}

func (s staticIdentity) Identity() *models.Identity {
	if s.id == nil {
		return nil
	}
	id := *s.id
	return &id
}

func rider(id string) staticIdentity {
	return staticIdentity{id: &models.Identity{ID: id, Email: id + "@example.com", Name: "Rider " + id}}
}

// recorder is a Notifier that remembers what it was told
type recorder struct {
	mu            sync.Mutex
	changes       []string
	notifications []string
}

func (r *recorder) CollectionChanged(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, collection)
}

func (r *recorder) Notify(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, level+": "+message)
}

func (r *recorder) notified() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notifications...)
}

// manualClock is a Clock the test moves by hand
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeProvider is an in-memory identity provider
type fakeProvider struct {
	mu         sync.Mutex
	users      map[string]*fakeAccount
	clock      Clock
	signOutErr error
	signOuts   int
	refreshes  int
	updates    []map[string]string
}

type fakeAccount struct {
	password   string
	sub        string
	attributes map[string]string
}

func newFakeProvider(clock Clock) *fakeProvider {
	return &fakeProvider{users: map[string]*fakeAccount{}, clock: clock}
}

func (p *fakeProvider) addUser(username, password, sub, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username] = &fakeAccount{
		password:   password,
		sub:        sub,
		attributes: map[string]string{"sub": sub, "email": username, "name": name},
	}
}

func (p *fakeProvider) mint(username string, ttl time.Duration) string {
	acct := p.users[username]
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      acct.sub,
		"username": username,
		"exp":      p.clock.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return signed
}

func (p *fakeProvider) tokens(username string) *identity.Tokens {
	return &identity.Tokens{
		AccessToken:  p.mint(username, time.Hour),
		IDToken:      p.mint(username, time.Hour),
		RefreshToken: "refresh-" + username,
		ExpiresAt:    p.clock.Now().Add(time.Hour),
	}
}

func (p *fakeProvider) SignIn(_ context.Context, username, password string) (*identity.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.users[username]
	if !ok || acct.password != password {
		return nil, &identity.ProviderError{Reason: identity.ReasonInvalidCredentials, Err: errors.New("incorrect username or password")}
	}
	return p.tokens(username), nil
}

func (p *fakeProvider) SignUp(_ context.Context, username, password string, attributes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[username]; ok {
		return &identity.ProviderError{Reason: identity.ReasonUserExists, Err: errors.New("user already exists")}
	}
	attrs := map[string]string{"sub": "sub-" + username}
	for k, v := range attributes {
		attrs[k] = v
	}
	p.users[username] = &fakeAccount{password: password, sub: attrs["sub"], attributes: attrs}
	return nil
}

func (p *fakeProvider) SignOut(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	return p.signOutErr
}

func (p *fakeProvider) Refresh(_ context.Context, username, refreshToken string) (*identity.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	if _, ok := p.users[username]; !ok || refreshToken != "refresh-"+username {
		return nil, &identity.ProviderError{Reason: identity.ReasonInvalidCredentials, Err: errors.New("invalid refresh token")}
	}
	return p.tokens(username), nil
}

func (p *fakeProvider) account(accessToken string) (string, *fakeAccount, error) {
	claims, err := identity.ParseToken(accessToken)
	if err != nil {
		return "", nil, err
	}
	acct, ok := p.users[claims.Username]
	if !ok {
		return "", nil, &identity.ProviderError{Reason: identity.ReasonUserNotFound, Err: fmt.Errorf("no user %s", claims.Username)}
	}
	return claims.Username, acct, nil
}

func (p *fakeProvider) GetCurrentUser(_ context.Context, accessToken string) (*identity.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	username, acct, err := p.account(accessToken)
	if err != nil {
		return nil, err
	}
	return &identity.User{UserID: acct.sub, Username: username}, nil
}

func (p *fakeProvider) FetchUserAttributes(_ context.Context, accessToken string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, acct, err := p.account(accessToken)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for k, v := range acct.attributes {
		out[k] = v
	}
	return out, nil
}

func (p *fakeProvider) UpdateUserAttributes(_ context.Context, accessToken string, attributes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, acct, err := p.account(accessToken)
	if err != nil {
		return err
	}
	for k, v := range attributes {
		acct.attributes[k] = v
	}
	p.updates = append(p.updates, attributes)
	return nil
}

func (f *fakeRemote) rideList() []models.Ride {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Ride(nil), f.rides...)
}

func (f *fakeRemote) expenseList() []models.Expense {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Expense(nil), f.expenses...)
}

func (f *fakeRemote) postList() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Post(nil), f.posts...)
}

func (f *fakeRemote) sosList() []models.SOSContact {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SOSContact(nil), f.sos...)
}

func (f *fakeRemote) saved() []models.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Settings(nil), f.savedSettings...)
}

func (f *fakeRemote) lastPostUpdate() map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.postUpdates) == 0 {
		return nil
	}
	return f.postUpdates[len(f.postUpdates)-1]
}
