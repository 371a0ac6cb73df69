package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/model"
	"storyboard-server/internal/prompts"
)

// GateFactory builds the credential gate for a newly created session.
// The gate typically talks back to the session's websocket connection.
type GateFactory func(sessionID string) CredentialGate

// ChangeFunc receives every state transition of every session.
type ChangeFunc func(sessionID string, snap model.Snapshot)

// Manager owns the live sessions, keyed by generated ID.
type Manager struct {
	logger   *zap.Logger
	client   GenerationClient
	deriver  prompts.Deriver
	newGate  GateFactory
	onChange ChangeFunc

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager creates an empty session manager.
func NewManager(logger *zap.Logger, client GenerationClient, deriver prompts.Deriver, newGate GateFactory, onChange ChangeFunc) *Manager {
	return &Manager{
		logger:   logger,
		client:   client,
		deriver:  deriver,
		newGate:  newGate,
		onChange: onChange,
		sessions: make(map[string]*Controller),
	}
}

// Create allocates a new session and returns its ID.
func (m *Manager) Create() string {
	id := uuid.New().String()
	ctrl := NewController(
		m.logger.With(zap.String("session_id", id)),
		m.client,
		m.newGate(id),
		m.deriver,
		func(snap model.Snapshot) {
			if m.onChange != nil {
				m.onChange(id, snap)
			}
		},
	)

	m.mu.Lock()
	m.sessions[id] = ctrl
	m.mu.Unlock()

	m.logger.Info("Session created", zap.String("session_id", id))
	return id
}

// Get returns the controller for the given session ID.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	ctrl, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ctrl, nil
}

// Remove closes and discards a session. Removing an unknown ID returns
// ErrSessionNotFound.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	ctrl, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ctrl.Close()
	m.logger.Info("Session removed", zap.String("session_id", id))
	return nil
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ctrl := range m.sessions {
		ctrl.Close()
		delete(m.sessions, id)
	}
}
