package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"ridemate/internal/theme"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types pushed to the presentation layer
const (
	EventCollectionChanged = "collection_changed"
	EventNotification      = "notification"
	EventTheme             = "theme"
	EventIdentity          = "identity"
)

// Notification levels
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event represents a WebSocket message
type Event struct {
	Type       string      `json:"type"`
	Timestamp  int64       `json:"timestamp"`
	Collection string      `json:"collection,omitempty"`
	Level      string      `json:"level,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// Notifier receives collection change and user notification events
type Notifier interface {
	CollectionChanged(collection string)
	Notify(level, message string)
}

type hubConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *hubConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages the WebSocket connections of the presentation layer
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*hubConn
	clock       Clock
}

// NewHub creates a new WebSocket hub
func NewHub(clock Clock) *Hub {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Hub{
		connections: make(map[string]*hubConn),
		clock:       clock,
	}
}

// Register registers a new WebSocket connection and returns its id
func (h *Hub) Register(conn *websocket.Conn) string {
	id := uuid.New().String()

	h.mu.Lock()
	h.connections[id] = &hubConn{conn: conn}
	h.mu.Unlock()

	log.Info().Str("conn_id", id).Msg("WebSocket connection registered")
	return id
}

// Unregister removes a WebSocket connection
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[id]; exists {
		c.conn.Close()
		delete(h.connections, id)
		log.Info().Str("conn_id", id).Msg("WebSocket connection unregistered")
	}
}

// Count returns the number of open connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Send sends an event to one connection
func (h *Hub) Send(id string, event Event) error {
	h.mu.RLock()
	c, exists := h.connections[id]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("connection %s is not registered", id)
	}

	data, err := h.encode(event)
	if err != nil {
		return err
	}

	if err := c.write(data); err != nil {
		h.Unregister(id)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Broadcast sends an event to every connection. Connections that fail are dropped.
func (h *Hub) Broadcast(event Event) {
	data, err := h.encode(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to encode event")
		return
	}

	h.mu.RLock()
	targets := make(map[string]*hubConn, len(h.connections))
	for id, c := range h.connections {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := c.write(data); err != nil {
			log.Error().Err(err).Str("conn_id", id).Str("type", event.Type).Msg("Failed to send event")
			h.Unregister(id)
		}
	}
}

// CollectionChanged tells the presentation layer to re-read a collection
func (h *Hub) CollectionChanged(collection string) {
	h.Broadcast(Event{Type: EventCollectionChanged, Collection: collection})
}

// Notify pushes a transient, dismissible notification
func (h *Hub) Notify(level, message string) {
	h.Broadcast(Event{Type: EventNotification, Level: level, Message: message})
}

// PublishTheme pushes resolved theme variables
func (h *Hub) PublishTheme(vars theme.Vars) {
	h.Broadcast(Event{Type: EventTheme, Data: vars})
}

func (h *Hub) encode(event Event) ([]byte, error) {
	if event.Timestamp == 0 {
		event.Timestamp = h.clock.Now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// discard is used when no notifier is configured
type discard struct{}

func (discard) CollectionChanged(string) {}
func (discard) Notify(string, string)    {}

var _ Notifier = (*Hub)(nil)

func orDiscard(n Notifier) Notifier {
	if n == nil {
		return discard{}
	}
	return n
}

func nowOr(clock Clock) Clock {
	if clock == nil {
		return SystemClock{}
	}
	return clock
}
