// Package localstate persists the small amount of client state that must
// survive a restart: the theme mode and the identity provider session.
package localstate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is the persisted identity provider session
type Session struct {
	Username     string    `yaml:"username"`
	AccessToken  string    `yaml:"access_token"`
	IDToken      string    `yaml:"id_token"`
	RefreshToken string    `yaml:"refresh_token"`
	ExpiresAt    time.Time `yaml:"expires_at"`
}

type document struct {
	Theme   string   `yaml:"theme,omitempty"`
	Session *Session `yaml:"session,omitempty"`
}

// Store is a YAML-file-backed state store. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// Open loads the state file at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return s, nil
}

// Theme returns the stored theme mode, or "" when none was saved
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Theme
}

// SetTheme stores the theme mode
func (s *Store) SetTheme(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Theme = mode
	return s.save()
}

// Session returns a copy of the stored session, or nil
func (s *Store) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc.Session == nil {
		return nil
	}
	sess := *s.doc.Session
	return &sess
}

// SaveSession stores the session
func (s *Store) SaveSession(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Session = &sess
	return s.save()
}

// ClearSession forgets the stored session
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Session == nil {
		return nil
	}
	s.doc.Session = nil
	return s.save()
}

// save writes the document through a temp file; callers hold the lock
func (s *Store) save() error {
	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ridemate-state-*")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
