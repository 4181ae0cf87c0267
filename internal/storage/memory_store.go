package storage

import (
	"sync"

	"github.com/in3-cli/in3cli/pkg/types"
)

// Ensure MemoryProfileStore implements ProfileStoreInterface
var _ ProfileStoreInterface = (*MemoryProfileStore)(nil)

// MemoryProfileStore is an in-memory implementation of profile storage for testing
type MemoryProfileStore struct {
	mu          sync.RWMutex
	order       []string
	profiles    map[string]map[string]string
	defaultName string
}

// NewMemoryProfileStore creates a new in-memory profile store
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles:    make(map[string]map[string]string),
		defaultName: types.Sentinel,
	}
}

// GetProfile retrieves a profile, resolving "" through the default pointer
func (m *MemoryProfileStore) GetProfile(name string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, values, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return newRecord(name, values), nil
}

// GetAllProfiles returns profiles in creation order
func (m *MemoryProfileStore) GetAllProfiles() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Record, 0, len(m.order))
	for _, name := range m.order {
		records = append(records, newRecord(name, m.profiles[name]))
	}
	return records
}

// CreateProfile creates or updates a profile
func (m *MemoryProfileStore) CreateProfile(name string, fields ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isReservedName(name) {
		return notFound(name)
	}

	values, exists := m.profiles[name]
	if !exists {
		values = defaultValues()
		m.profiles[name] = values
		m.order = append(m.order, name)
	}
	apply(values, fields)

	m.tryCompleteSetup(name, values)
	return nil
}

// UpdateProfile updates an existing profile
func (m *MemoryProfileStore) UpdateProfile(name string, fields ProfileFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, values, err := m.lookup(name)
	if err != nil {
		return err
	}
	hadAddress := hasRealAddress(values)
	apply(values, fields)
	if !hadAddress {
		m.tryCompleteSetup(resolved, values)
	}
	return nil
}

// SwitchDefault changes the default pointer
func (m *MemoryProfileStore) SwitchDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, _, err := m.lookup(name)
	if err != nil {
		return err
	}
	m.defaultName = resolved
	return nil
}

// DeleteProfile removes a profile from memory
func (m *MemoryProfileStore) DeleteProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, _, err := m.lookup(name)
	if err != nil {
		return err
	}

	delete(m.profiles, resolved)
	for i, n := range m.order {
		if n == resolved {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.defaultName == resolved {
		m.defaultName = types.Sentinel
	}
	return nil
}

// DefaultProfileName returns the default pointer, or "" when unset
func (m *MemoryProfileStore) DefaultProfileName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.defaultName == types.Sentinel {
		return ""
	}
	return m.defaultName
}

func (m *MemoryProfileStore) lookup(name string) (string, map[string]string, error) {
	if name == "" {
		name = m.defaultName
	}
	if isReservedName(name) {
		return "", nil, notFound(name)
	}
	values, ok := m.profiles[name]
	if !ok {
		return "", nil, notFound(name)
	}
	return name, values, nil
}

func (m *MemoryProfileStore) tryCompleteSetup(name string, values map[string]string) {
	if hasRealAddress(values) && defaultUnset(m.defaultName) {
		m.defaultName = name
	}
}
