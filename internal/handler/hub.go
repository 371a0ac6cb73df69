package handler

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"storyboard-server/internal/model"
)

// Event types pushed to the browser over the session websocket.
const (
	eventState              = "state"
	eventCredentialReselect = "credential_reselect"
)

// wsEvent is the envelope for every websocket push.
type wsEvent struct {
	Type  string          `json:"type"`
	State *model.Snapshot `json:"state,omitempty"`
}

// wsClient is one websocket connection bound to a session.
type wsClient struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan []byte
}

// Hub tracks the active websocket connection per session. A session has
// at most one connection; a new one replaces the old.
type Hub struct {
	logger     *zap.Logger
	register   chan *wsClient
	unregister chan *wsClient

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewHub creates and starts a connection hub.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		logger:     logger,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		clients:    make(map[string]*wsClient),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.SessionID]; ok {
				h.logger.Info("Replacing existing websocket connection", zap.String("session_id", client.SessionID))
				close(old.send)
				_ = old.Conn.Close()
			}
			h.clients[client.SessionID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			// A replaced connection's teardown must not detach the
			// replacement, so remove the entry only if it is still this
			// exact client.
			if current, ok := h.clients[client.SessionID]; ok && current == client {
				delete(h.clients, client.SessionID)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// RegisterClient attaches a connection to its session.
func (h *Hub) RegisterClient(client *wsClient) {
	h.register <- client
}

// UnregisterClient detaches a connection. A no-op when the session has
// already been taken over by a newer connection.
func (h *Hub) UnregisterClient(client *wsClient) {
	h.unregister <- client
}

// SendState pushes a state snapshot to the session's connection, if any.
func (h *Hub) SendState(sessionID string, snap model.Snapshot) {
	h.send(sessionID, wsEvent{Type: eventState, State: &snap})
}

// SendCredentialReselect asks the session's client to re-select its API
// credential. Returns an error when no connection is attached.
func (h *Hub) SendCredentialReselect(sessionID string) error {
	if !h.send(sessionID, wsEvent{Type: eventCredentialReselect}) {
		return fmt.Errorf("session %s has no active connection", sessionID)
	}
	return nil
}

func (h *Hub) send(sessionID string, event wsEvent) bool {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal websocket event", zap.Error(err))
		return false
	}

	h.mu.RLock()
	client, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		h.logger.Warn("Websocket send queue is full, dropping event",
			zap.String("session_id", sessionID),
			zap.String("event_type", event.Type),
		)
		return false
	}
}
