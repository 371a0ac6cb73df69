package handler

import (
	"context"

	"storyboard-server/internal/session"
)

// hubGate implements the credential capability for one session over its
// websocket connection. The server holds the API key; re-selection is a
// request pushed to the browser, which swaps the key out of band.
type hubGate struct {
	hub       *Hub
	sessionID string
	hasKey    bool
}

// NewGateFactory builds per-session credential gates backed by the hub.
// keyConfigured reports whether an API key is present at all.
func NewGateFactory(hub *Hub, keyConfigured bool) session.GateFactory {
	return func(sessionID string) session.CredentialGate {
		return &hubGate{hub: hub, sessionID: sessionID, hasKey: keyConfigured}
	}
}

func (g *hubGate) HasCredential(_ context.Context) bool {
	return g.hasKey
}

func (g *hubGate) RequestCredential(_ context.Context) error {
	return g.hub.SendCredentialReselect(g.sessionID)
}
