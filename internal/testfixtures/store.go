package testfixtures

import (
	"context"
	"sync"

	"github.com/example/jusagenda/internal/application"
)

// MemoryStore implements application.Persistence in memory with optional
// failure injection.
type MemoryStore struct {
	mu        sync.Mutex
	events    []application.Event
	LoadErr   error
	SaveErr   error
	saveCalls int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed replaces the stored list.
func (m *MemoryStore) Seed(events []application.Event) {
	m.mu.Lock()
	m.events = append([]application.Event(nil), events...)
	m.mu.Unlock()
}

// Load returns the stored list or the injected LoadErr.
func (m *MemoryStore) Load(ctx context.Context) ([]application.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make([]application.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

// Save replaces the stored list or fails with the injected SaveErr. Either
// way the call is counted.
func (m *MemoryStore) Save(ctx context.Context, events []application.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.events = make([]application.Event, len(events))
	copy(m.events, events)
	return nil
}

// SaveCalls reports how many times Save was invoked.
func (m *MemoryStore) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

// Stored returns a copy of the last successfully saved list.
func (m *MemoryStore) Stored() []application.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]application.Event, len(m.events))
	copy(out, m.events)
	return out
}
