package settings

import (
	"context"
	"sync"
)

// MemoryStore is a Store held in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	current   Settings
	listeners map[int]func(Settings)
	nextID    int
}

// NewMemoryStore creates a store holding the normalized initial snapshot.
func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{
		current:   Normalize(initial),
		listeners: make(map[int]func(Settings)),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone(), nil
}

// Set replaces the snapshot and notifies listeners outside the lock.
func (m *MemoryStore) Set(_ context.Context, s Settings) error {
	s = Normalize(s)
	m.mu.Lock()
	m.current = s
	fns := make([]func(Settings), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
	return nil
}

// OnChange implements Store.
func (m *MemoryStore) OnChange(fn func(Settings)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}
