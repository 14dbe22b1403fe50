// Package theme holds the process-wide visual preferences: light or dark
// mode and the accent color.
package theme

import (
	"fmt"
	"sync"
)

// Mode is the color scheme
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// Accent presets offered by the settings screen
var AccentPresets = []Preset{
	{Name: "Orange", Value: "#ff6b35"},
	{Name: "Blue", Value: "#556ee6"},
	{Name: "Teal", Value: "#4ecdc4"},
	{Name: "Purple", Value: "#6c5ce7"},
	{Name: "Pink", Value: "#ef476f"},
	{Name: "Amber", Value: "#f7931e"},
}

// Preset is a named accent color
type Preset struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const defaultAccent = "#ff6b35"

// Vars are the resolved theme variables handed to the presentation layer
type Vars struct {
	Mode      Mode   `json:"mode"`
	Accent    string `json:"accent"`
	AccentHex string `json:"accent_hex"`
}

// ModeStore persists the theme mode between runs
type ModeStore interface {
	Theme() string
	SetTheme(mode string) error
}

// Context owns the theme state. Changes are published only between Apply and
// Teardown.
type Context struct {
	mu      sync.Mutex
	store   ModeStore
	mode    Mode
	accent  string
	publish func(Vars)
}

// New creates a theme context, reading the stored mode
func New(store ModeStore) *Context {
	c := &Context{store: store, mode: ModeLight, accent: defaultAccent}
	if store != nil && Mode(store.Theme()) == ModeDark {
		c.mode = ModeDark
	}
	return c
}

// Apply starts publishing theme changes and publishes the current variables
func (c *Context) Apply(publish func(Vars)) {
	c.mu.Lock()
	c.publish = publish
	vars := c.varsLocked()
	c.mu.Unlock()

	if publish != nil {
		publish(vars)
	}
}

// Teardown stops publishing and resets the in-memory accent. The stored mode
// is kept.
func (c *Context) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publish = nil
	c.accent = defaultAccent
}

// SetMode changes and persists the color scheme
func (c *Context) SetMode(mode Mode) error {
	if mode != ModeLight && mode != ModeDark {
		return fmt.Errorf("unknown theme mode %q", mode)
	}

	c.mu.Lock()
	c.mode = mode
	vars, publish := c.varsLocked(), c.publish
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SetTheme(string(mode)); err != nil {
			return fmt.Errorf("failed to persist theme: %w", err)
		}
	}
	if publish != nil {
		publish(vars)
	}
	return nil
}

// SetAccent changes the accent color
func (c *Context) SetAccent(hex string) {
	c.mu.Lock()
	c.accent = hex
	vars, publish := c.varsLocked(), c.publish
	c.mu.Unlock()

	if publish != nil {
		publish(vars)
	}
}

// Vars returns the current theme variables
func (c *Context) Vars() Vars {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.varsLocked()
}

func (c *Context) varsLocked() Vars {
	return Vars{Mode: c.mode, Accent: HexToHSL(c.accent), AccentHex: c.accent}
}
