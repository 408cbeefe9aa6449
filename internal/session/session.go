// Package session tracks login state per identity. One active session per
// logged-in identity; a new login supersedes the prior session. Sessions
// expire after a fixed idle timeout and every authorized operation refreshes
// the last-activity time.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/cradoe/walletguard/internal/models"
	"github.com/google/uuid"
)

const IdleTimeout = 30 * time.Minute

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrExpired          = errors.New("session expired")
)

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	idle     time.Duration

	// now is swapped out in tests.
	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*models.Session),
		idle:     IdleTimeout,
		now:      time.Now,
	}
}

// Start opens a session for the identity, superseding any prior one.
func (m *Manager) Start(mobileNumber string) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session := &models.Session{
		ID:             uuid.NewString(),
		MobileNumber:   mobileNumber,
		LoginAt:        now,
		LastActivityAt: now,
	}
	m.sessions[mobileNumber] = session

	return session
}

// RequireActive is called by every privileged operation. An expired session
// is invalidated before the error is returned: the caller must re-authenticate.
func (m *Manager) RequireActive(mobileNumber string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, found := m.sessions[mobileNumber]
	if !found {
		return nil, ErrNotAuthenticated
	}

	if m.now().Sub(session.LastActivityAt) > m.idle {
		delete(m.sessions, mobileNumber)
		return nil, ErrExpired
	}

	return session, nil
}

// Touch refreshes the session's last-activity time. A no-op when no session
// exists; callers are expected to have passed RequireActive first.
func (m *Manager) Touch(mobileNumber string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, found := m.sessions[mobileNumber]; found {
		session.LastActivityAt = m.now()
	}
}

// End invalidates the identity's session, if any.
func (m *Manager) End(mobileNumber string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, mobileNumber)
}
