package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/in3-cli/in3cli/pkg/types"
)

const availabilityAccount = "availability-check"

// KeyringBackend stores secrets in the OS keyring (macOS Keychain, Secret
// Service on Linux, Windows Credential Manager).
type KeyringBackend struct{}

// NewKeyringBackend creates a keyring backend
func NewKeyringBackend() *KeyringBackend {
	return &KeyringBackend{}
}

func (k *KeyringBackend) Name() string { return "keyring" }

func (k *KeyringBackend) Secure() bool { return true }

// Check verifies that the keyring answers. A missing check entry counts as available.
func (k *KeyringBackend) Check() error {
	_, err := keyring.Get(types.ProductName, availabilityAccount)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func (k *KeyringBackend) Get(service, account string) (string, error) {
	s, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring: get %q: %w", service, err)
	}
	return s, nil
}

func (k *KeyringBackend) Set(service, account, secret string) error {
	if err := keyring.Set(service, account, secret); err != nil {
		return fmt.Errorf("keyring: set %q: %w", service, err)
	}
	return nil
}

func (k *KeyringBackend) Delete(service, account string) error {
	if err := keyring.Delete(service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("keyring: delete %q: %w", service, err)
	}
	return nil
}
