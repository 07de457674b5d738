// Package session tracks the current-user session marker: created on login,
// destroyed on logout, expired after a fixed idle timeout. Two backends share
// one contract, an in-memory map and Redis, selected at startup.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hadirku/internal/model"
)

// Session is the explicit current-user marker passed through the request
// path instead of module-level mutable state.
type Session struct {
	ID        string     `json:"id"`
	User      model.User `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	LastSeen  time.Time  `json:"lastSeen"`
}

// Manager is the session store contract.
type Manager interface {
	Create(ctx context.Context, user model.User) (Session, error)
	// Get returns nil for unknown or idle-expired sessions and refreshes the
	// last-activity mark on a hit.
	Get(ctx context.Context, id string) (*Session, error)
	// Destroy is safe to call when no such session exists.
	Destroy(ctx context.Context, id string) error
	Close() error
}

// Memory is the in-process manager. A background sweeper drops idle
// sessions; Close stops it without leaking the ticker.
type Memory struct {
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	stop chan struct{}
	done chan struct{}

	// now allows tests to drive the clock.
	now func() time.Time
}

// NewMemory starts a manager whose sessions expire after timeout of
// inactivity.
func NewMemory(timeout time.Duration) *Memory {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	m := &Memory{
		timeout:  timeout,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go m.sweep()
	return m
}

func (m *Memory) sweep() {
	defer close(m.done)
	ticker := time.NewTicker(m.timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for id, s := range m.sessions {
				if now.Sub(s.LastSeen) >= m.timeout {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Create registers a fresh session for user.
func (m *Memory) Create(_ context.Context, user model.User) (Session, error) {
	now := m.now()
	s := Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		LastSeen:  now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = &s
	m.mu.Unlock()
	return s, nil
}

// Get returns a live session and touches its last-activity mark.
func (m *Memory) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	now := m.now()
	if now.Sub(s.LastSeen) >= m.timeout {
		delete(m.sessions, id)
		return nil, nil
	}
	s.LastSeen = now
	out := *s
	return &out, nil
}

// Destroy removes a session; absent ids are a no-op.
func (m *Memory) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Close stops the sweeper and waits for it to exit.
func (m *Memory) Close() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
	return nil
}
