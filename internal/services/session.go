package services

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"ridemate/internal/identity"
	"ridemate/internal/localstate"
	"ridemate/internal/models"
	"ridemate/internal/repository"

	"github.com/rs/zerolog/log"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// TokenStore persists the provider session between runs
type TokenStore interface {
	Session() *localstate.Session
	SaveSession(sess localstate.Session) error
	ClearSession() error
}

// AccentSink receives the active accent color
type AccentSink interface {
	SetAccent(hex string)
}

// IdentitySource exposes the active identity to the collections
type IdentitySource interface {
	Identity() *models.Identity
}

// IdentityListener is called when the identity appears or goes away
type IdentityListener func(ctx context.Context, id *models.Identity)

// SignupRequest is the input of Signup
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SessionStore owns the signed-in identity and its display preferences
type SessionStore struct {
	provider identity.Provider
	settings *repository.SettingsRepository
	tokens   TokenStore
	accent   AccentSink
	clock    Clock

	mu        sync.RWMutex
	identity  *models.Identity
	prefs     models.Preferences
	loading   bool
	session   *localstate.Session
	listeners []IdentityListener
}

// NewSessionStore creates a session store. It reports Loading until
// Initialize returns.
func NewSessionStore(
	provider identity.Provider,
	settings *repository.SettingsRepository,
	tokens TokenStore,
	accent AccentSink,
	clock Clock,
) *SessionStore {
	return &SessionStore{
		provider: provider,
		settings: settings,
		tokens:   tokens,
		accent:   accent,
		clock:    nowOr(clock),
		prefs:    models.DefaultPreferences(),
		loading:  true,
	}
}

// OnIdentityChange registers a listener
func (s *SessionStore) OnIdentityChange(fn IdentityListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Identity returns a copy of the active identity, or nil
func (s *SessionStore) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Loading reports whether the stored session is still being resolved
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Preferences returns the display preferences of the active identity
func (s *SessionStore) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Initialize resolves the identity of a stored session. Any failure means
// nobody is signed in; it is logged and never returned.
func (s *SessionStore) Initialize(ctx context.Context) *models.Identity {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	stored := s.tokens.Session()
	if stored == nil || stored.AccessToken == "" {
		return nil
	}

	if identity.Expired(stored.AccessToken, s.clock.Now()) {
		if stored.RefreshToken == "" {
			s.forget("session expired")
			return nil
		}
		tokens, err := s.provider.Refresh(ctx, stored.Username, stored.RefreshToken)
		if err != nil {
			log.Warn().Err(err).Str("username", stored.Username).Msg("Failed to refresh session")
			s.forget("refresh failed")
			return nil
		}
		refreshed := toSession(stored.Username, tokens)
		stored = &refreshed
		if err := s.tokens.SaveSession(refreshed); err != nil {
			log.Error().Err(err).Msg("Failed to persist refreshed session")
		}
	}

	id, err := s.resolve(ctx, stored)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve stored session")
		s.forget("resolve failed")
		return nil
	}

	s.setIdentity(ctx, id, stored)
	return s.Identity()
}

// Login signs in and resolves the identity
func (s *SessionStore) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if password == "" {
		return nil, invalid("password", "is required")
	}

	tokens, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, newAuthError("login", err)
	}

	sess := toSession(email, tokens)
	if err := s.tokens.SaveSession(sess); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
	}

	id, err := s.resolve(ctx, &sess)
	if err != nil {
		return nil, newAuthError("login", err)
	}
	if id.Email == "" {
		id.Email = email
	}

	s.setIdentity(ctx, id, &sess)

	log.Info().Str("user_id", id.ID).Msg("Signed in")
	return s.Identity(), nil
}

// Signup registers an account. It does not sign in.
func (s *SessionStore) Signup(ctx context.Context, req SignupRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		return invalid("name", "is required")
	}
	if req.Email == "" {
		return invalid("email", "is required")
	}
	if err := CheckPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	attributes := map[string]string{"email": req.Email, "name": req.Name}
	if err := s.provider.SignUp(ctx, req.Email, req.Password, attributes); err != nil {
		return newAuthError("signup", err)
	}

	log.Info().Str("email", req.Email).Msg("Account registered")
	return nil
}

// Logout signs out everywhere. Local state is cleared even when the provider
// call fails.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.RLock()
	sess := s.session
	s.mu.RUnlock()

	if sess != nil && sess.AccessToken != "" {
		if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
			log.Error().Err(err).Msg("Failed to sign out from identity provider")
		}
	}

	if err := s.tokens.ClearSession(); err != nil {
		log.Error().Err(err).Msg("Failed to clear stored session")
	}
	s.setIdentity(ctx, nil, nil)
}

// UpdateProfile merges the patch into the identity. Name and email are also
// sent to the provider; a provider failure is logged and not rolled back.
func (s *SessionStore) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.Identity, error) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return nil, ErrNotLoggedIn
	}
	updated := patch.Apply(*s.identity)
	s.identity = &updated
	sess := s.session
	s.mu.Unlock()

	attributes := map[string]string{}
	if patch.Name.IsSpecified() && !patch.Name.IsNull() {
		attributes["name"] = patch.Name.MustGet()
	}
	if patch.Email.IsSpecified() && !patch.Email.IsNull() {
		attributes["email"] = patch.Email.MustGet()
	}

	if len(attributes) > 0 && sess != nil {
		if err := s.provider.UpdateUserAttributes(ctx, sess.AccessToken, attributes); err != nil {
			log.Error().Err(err).Str("user_id", updated.ID).Msg("Failed to update user attributes")
		}
	}

	return &updated, nil
}

// SetAccentColor changes the accent color and saves the full preferences
func (s *SessionStore) SetAccentColor(ctx context.Context, hex string) error {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return invalid("accent_color", "is required")
	}
	return s.updatePreferences(ctx, func(p *models.Preferences) { p.AccentColor = hex })
}

// SetUseMetric changes the distance unit and saves the full preferences
func (s *SessionStore) SetUseMetric(ctx context.Context, useMetric bool) error {
	return s.updatePreferences(ctx, func(p *models.Preferences) { p.UseMetric = useMetric })
}

func (s *SessionStore) updatePreferences(ctx context.Context, change func(*models.Preferences)) error {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	change(&s.prefs)
	prefs, userID := s.prefs, s.identity.ID
	s.mu.Unlock()

	s.applyAccent(prefs.AccentColor)

	settings := models.Settings{
		AccentColor: prefs.AccentColor,
		Unit:        prefs.Unit(),
		UserID:      userID,
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to save preferences")
		return err
	}
	return nil
}

// loadPreferences fetches the preferences of a new identity. Missing fields
// keep their defaults.
func (s *SessionStore) loadPreferences(ctx context.Context, userID string) {
	prefs := models.DefaultPreferences()

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to fetch preferences, using defaults")
	} else {
		if settings.AccentColor != "" {
			prefs.AccentColor = settings.AccentColor
		}
		switch settings.Unit {
		case models.UnitImperial:
			prefs.UseMetric = false
		case models.UnitMetric:
			prefs.UseMetric = true
		}
	}

	s.mu.Lock()
	if s.identity == nil || s.identity.ID != userID {
		s.mu.Unlock()
		return
	}
	s.prefs = prefs
	s.mu.Unlock()

	s.applyAccent(prefs.AccentColor)
}

func (s *SessionStore) resolve(ctx context.Context, sess *localstate.Session) (*models.Identity, error) {
	user, err := s.provider.GetCurrentUser(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	attributes, err := s.provider.FetchUserAttributes(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}

	username := user.Username
	if username == "" {
		username = sess.Username
	}

	id := &models.Identity{
		ID:     user.UserID,
		Email:  attributes["email"],
		Name:   attributes["name"],
		Avatar: AvatarURL(username),
	}
	if id.ID == "" {
		id.ID = attributes["sub"]
	}
	if id.Email == "" {
		id.Email = sess.Username
	}
	if id.Name == "" {
		id.Name = username
	}
	return id, nil
}

// setIdentity swaps the identity and notifies listeners when it changes
func (s *SessionStore) setIdentity(ctx context.Context, id *models.Identity, sess *localstate.Session) {
	s.mu.Lock()
	var previous string
	if s.identity != nil {
		previous = s.identity.ID
	}
	s.identity = id
	s.session = sess
	if id == nil {
		s.prefs = models.DefaultPreferences()
	}
	listeners := append([]IdentityListener(nil), s.listeners...)
	s.mu.Unlock()

	switch {
	case id != nil && id.ID != previous:
		s.loadPreferences(ctx, id.ID)
	case id == nil && previous != "":
		s.applyAccent(models.DefaultAccentColor)
	default:
		return
	}

	current := s.Identity()
	for _, fn := range listeners {
		fn(ctx, current)
	}
}

func (s *SessionStore) forget(reason string) {
	log.Info().Str("reason", reason).Msg("Discarding stored session")
	if err := s.tokens.ClearSession(); err != nil {
		log.Error().Err(err).Msg("Failed to clear stored session")
	}
}

func (s *SessionStore) applyAccent(hex string) {
	if s.accent != nil {
		s.accent.SetAccent(hex)
	}
}

func toSession(username string, t *identity.Tokens) localstate.Session {
	return localstate.Session{
		Username:     username,
		AccessToken:  t.AccessToken,
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
	}
}

// AvatarURL returns the generated avatar of a username
func AvatarURL(username string) string {
	return avatarBaseURL + url.QueryEscape(username)
}

// CheckPassword enforces the sign-up password policy
func CheckPassword(password, confirm string) error {
	if len(password) < 6 {
		return invalid("password", "must be at least 6 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	switch {
	case !upper:
		return invalid("password", "must contain an uppercase letter")
	case !lower:
		return invalid("password", "must contain a lowercase letter")
	case !digit:
		return invalid("password", "must contain a number")
	case !special:
		return invalid("password", "must contain a special character")
	}

	if password != confirm {
		return invalid("confirm_password", "does not match")
	}
	return nil
}
