// Package cursor keeps per-profile progress markers, such as the last
// block reported by "in3 eth new-blocks". Cursors are derived state: they
// belong to a profile and are removed with it.
package cursor

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get when a cursor was never set
var ErrNotFound = errors.New("cursor not found")

// Well-known cursor names
const (
	NewBlocks = "new-blocks"
)

// Store persists named uint64 cursors per profile
type Store interface {
	Get(profile, name string) (uint64, error)
	Set(profile, name string, value uint64) error
	Delete(profile, name string) error
	// List returns the cursor names of a profile in sorted order
	List(profile string) ([]string, error)
	Close() error
}

// Handle points at one stored cursor
type Handle struct {
	store   Store
	Profile string
	Name    string
}

// Clean deletes the cursor
func (h Handle) Clean() error {
	return h.store.Delete(h.Profile, h.Name)
}

// ForProfile returns a handle for every cursor stored for profile
func ForProfile(store Store, profile string) ([]Handle, error) {
	names, err := store.List(profile)
	if err != nil {
		return nil, err
	}
	handles := make([]Handle, len(names))
	for i, name := range names {
		handles[i] = Handle{store: store, Profile: profile, Name: name}
	}
	return handles, nil
}

// MemoryStore is an in-memory Store for tests
type MemoryStore struct {
	mu      sync.RWMutex
	cursors map[string]map[string]uint64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[string]map[string]uint64)}
}

func (m *MemoryStore) Get(profile, name string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.cursors[profile][name]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(profile, name string, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursors[profile] == nil {
		m.cursors[profile] = make(map[string]uint64)
	}
	m.cursors[profile][name] = value
	return nil
}

func (m *MemoryStore) Delete(profile, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cursors[profile], name)
	if len(m.cursors[profile]) == 0 {
		delete(m.cursors, profile)
	}
	return nil
}

func (m *MemoryStore) List(profile string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.cursors[profile]))
	for name := range m.cursors[profile] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Close() error { return nil }
