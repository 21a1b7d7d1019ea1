// Package session holds per-browsing-session state in memory. Sessions
// exist only for the lifetime of the process; a restart logs everyone out.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session tracks the logged-in identity for one browsing session.
type Session struct {
	Authenticated bool
	Username      string
	CreatedAt     time.Time
}

// Manager owns the token -> session map. All access goes through the
// mutex, so a logout is atomic from the callers' perspective: a token is
// either fully present and authenticated, or gone.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]Session)}
}

// Create establishes a new authenticated session for username and
// returns its opaque token.
func (m *Manager) Create(username string) string {
	token := uuid.New().String()
	m.mu.Lock()
	m.sessions[token] = Session{
		Authenticated: true,
		Username:      username,
		CreatedAt:     time.Now(),
	}
	m.mu.Unlock()
	return token
}

// Get returns the session for token, if one exists.
func (m *Manager) Get(token string) (Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	return s, ok
}

// Destroy removes the session for token. Removing an unknown token is a
// no-op, so logout is idempotent.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
