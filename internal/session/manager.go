// Package session tracks live conversations by ID and serializes turns:
// each session runs at most one chat turn at a time, because the
// conversation state underneath is turn-serial.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/recall/internal/memory"
	"github.com/scrypster/recall/pkg/types"
)

var (
	// ErrNotFound is returned when no session exists under the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrTurnInProgress is returned when a chat request arrives while the
	// session is still answering the previous one.
	ErrTurnInProgress = errors.New("session has a turn in progress")
)

// Engine is the per-session conversation engine the manager creates and
// drives. *engine.Engine satisfies it.
type Engine interface {
	Chat(ctx context.Context, question string) (string, error)
	Stats() memory.Stats
	History(n int) []types.Message
	Clear()
}

// Session binds an ID to an engine and serializes access to it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	eng        Engine
	lastActive time.Time
}

// Chat runs one turn. It fails fast with ErrTurnInProgress instead of
// queueing when the previous turn has not finished.
func (s *Session) Chat(ctx context.Context, question string) (string, error) {
	if !s.mu.TryLock() {
		return "", ErrTurnInProgress
	}
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	return s.eng.Chat(ctx, question)
}

// Stats returns the session's memory snapshot. It waits for any
// in-flight turn.
func (s *Session) Stats() memory.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Stats()
}

// History returns the session's last n messages, oldest first.
func (s *Session) History(n int) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.History(n)
}

// Clear resets the session's conversation memory.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng.Clear()
}

// LastActive reports when the session last started a turn.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Manager owns the session registry. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	newEngine func() (Engine, error)
}

// NewManager creates a manager that builds each session's engine with
// newEngine.
func NewManager(newEngine func() (Engine, error)) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		newEngine: newEngine,
	}
}

// Create registers a new session with a fresh engine and returns it.
func (m *Manager) Create() (*Session, error) {
	eng, err := m.newEngine()
	if err != nil {
		return nil, fmt.Errorf("create session engine: %w", err)
	}

	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		eng:        eng,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete removes the session with the given ID.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// IDs returns the IDs of all live sessions.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
