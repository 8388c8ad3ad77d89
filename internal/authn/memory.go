package authn

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps sessions in process memory. Suitable for a single
// instance; sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	clock    clockwork.Clock
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(clk clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		sessions: map[string]memoryEntry{},
		clock:    clk,
	}
}

func (m *MemoryStore) Put(ctx context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = memoryEntry{
		session:   s,
		expiresAt: m.clock.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if m.clock.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	return entry.session, nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}
