// Package secret stores per-profile private keys outside the profile file.
//
// Secrets are addressed by a service name scoped to the product and profile
// ("in3cli::alice") and an account (the profile address). The OS keyring is
// preferred; the encrypted flat file is a fallback that needs user consent
// before anything is written to it.
package secret

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/in3-cli/in3cli/internal/log"
)

// ErrNotFound is returned by a Backend when no secret is stored for the address
var ErrNotFound = errors.New("secret not found")

// Backend is a raw secret facility. Get and Delete return ErrNotFound when
// nothing is stored under (service, account).
type Backend interface {
	Name() string
	Secure() bool
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

// Mode selects the backend OpenBackend returns
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeKeyring Mode = "keyring"
	ModeFile    Mode = "file"
)

// ParseMode validates a configured backend mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeKeyring, ModeFile:
		return m, nil
	default:
		return "", fmt.Errorf("unknown secrets backend '%s': expected auto, keyring or file", s)
	}
}

// OpenBackend returns the backend for mode. In auto mode the OS keyring is
// checked and the file backend in dir is used when it is unavailable.
func OpenBackend(mode Mode, dir, passphrase string) (Backend, error) {
	switch mode {
	case ModeKeyring:
		kb := NewKeyringBackend()
		if err := kb.Check(); err != nil {
			return nil, fmt.Errorf("keyring is unavailable: %w", err)
		}
		return kb, nil
	case ModeFile:
		return NewFileBackend(dir, passphrase), nil
	case ModeAuto, "":
		kb := NewKeyringBackend()
		if err := kb.Check(); err != nil {
			log.Secrets.Warn().Err(err).Msg("keyring is unavailable, falling back to flat file")
			return NewFileBackend(dir, passphrase), nil
		}
		return kb, nil
	default:
		return nil, fmt.Errorf("unknown secrets backend '%s'", mode)
	}
}

// MemoryBackend keeps secrets in memory. The secure flag decides whether
// Store asks for consent before writing to it.
type MemoryBackend struct {
	mu      sync.RWMutex
	secure  bool
	secrets map[string]string
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend(secure bool) *MemoryBackend {
	return &MemoryBackend{
		secure:  secure,
		secrets: make(map[string]string),
	}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Secure() bool { return m.secure }

func (m *MemoryBackend) Get(service, account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.secrets[entryKey(service, account)]
	if !ok {
		return "", ErrNotFound
	}
	return s, nil
}

func (m *MemoryBackend) Set(service, account, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets[entryKey(service, account)] = secret
	return nil
}

func (m *MemoryBackend) Delete(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryKey(service, account)
	if _, ok := m.secrets[key]; !ok {
		return ErrNotFound
	}
	delete(m.secrets, key)
	return nil
}

// Len returns the number of stored secrets
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}

func entryKey(service, account string) string {
	return service + "/" + account
}
