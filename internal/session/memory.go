package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Used by tests and tripctl.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{data: make(map[string]*memoryEntry), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) entry(id string) (*memoryEntry, bool) {
	e, ok := m.data[id]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.data, id)
		return nil, false
	}
	return e, true
}

func (m *MemoryStore) touch(e *memoryEntry) {
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	st := e.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return &st, nil
}

func (m *MemoryStore) Set(ctx context.Context, id string, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entry(id)
	if !ok {
		e = &memoryEntry{}
		m.data[id] = e
	}
	e.state = *st
	m.touch(e)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entry(id); ok {
		e.state.Token = ""
		e.state.User = nil
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

func (m *MemoryStore) IncrLoginAttempts(ctx context.Context, id, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entry(id)
	if !ok {
		e = &memoryEntry{}
		m.data[id] = e
	}
	if e.state.LoginEmail != email {
		e.state.LoginEmail = email
		e.state.LoginFailedAttempts = 0
	}
	e.state.LoginFailedAttempts++
	m.touch(e)
	return e.state.LoginFailedAttempts, nil
}

func (m *MemoryStore) SetLoginBlock(ctx context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entry(id)
	if !ok {
		e = &memoryEntry{}
		m.data[id] = e
	}
	e.state.LoginBlockUntil = until
	m.touch(e)
	return nil
}

func (m *MemoryStore) ResetLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entry(id); ok {
		e.state.LoginFailedAttempts = 0
		e.state.LoginBlockUntil = time.Time{}
	}
	return nil
}
