package handlers

import (
	"encoding/json"
	"net/http"

	"ridemate/internal/services"
	"ridemate/internal/theme"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local API, bound to loopback by default
	},
}

// WebSocketHandler streams change events to the presentation layer
type WebSocketHandler struct {
	hub     *services.Hub
	session *services.SessionStore
	theme   *theme.Context
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.Hub, session *services.SessionStore, themeCtx *theme.Context) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		session: session,
		theme:   themeCtx,
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	connID := h.hub.Register(conn)
	defer h.hub.Unregister(connID)

	h.sendState(connID)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("conn_id", connID).Msg("WebSocket error")
			}
			break
		}

		var msg services.Event
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("conn_id", connID).Msg("Failed to parse WebSocket message")
			h.sendError(connID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			h.send(connID, services.Event{Type: "pong"})
		case "sync":
			h.sendState(connID)
		default:
			h.sendError(connID, "Unknown message type")
		}
	}
}

// sendState sends the current theme and identity to one connection
func (h *WebSocketHandler) sendState(connID string) {
	h.send(connID, services.Event{Type: services.EventTheme, Data: h.theme.Vars()})
	h.send(connID, services.Event{Type: services.EventIdentity, Data: h.session.Identity()})
}

func (h *WebSocketHandler) sendError(connID, message string) {
	h.send(connID, services.Event{Type: services.EventNotification, Level: services.LevelError, Message: message})
}

func (h *WebSocketHandler) send(connID string, event services.Event) {
	if err := h.hub.Send(connID, event); err != nil {
		log.Error().Err(err).Str("conn_id", connID).Str("type", event.Type).Msg("Failed to send WebSocket message")
	}
}
