// Package account resolves, creates and removes profiles and keeps their
// stored private keys and derived state consistent with the profile file.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/in3-cli/in3cli/internal/audit"
	"github.com/in3-cli/in3cli/internal/log"
	"github.com/in3-cli/in3cli/internal/secret"
	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/pkg/types"
)

// SecretStore is the subset of secret.Store the manager needs
type SecretStore interface {
	Get(ref secret.Ref) (string, bool, error)
	Set(ctx context.Context, ref secret.Ref, secret string) (bool, error)
	Delete(ref secret.Ref) error
	Move(from, to secret.Ref) error
	BackendName() string
}

// Cleaner removes one piece of derived per-profile state
type Cleaner interface {
	Clean() error
}

// DerivedStateSource enumerates the derived state kept for a profile
type DerivedStateSource interface {
	DerivedState(profile string) ([]Cleaner, error)
}

// DerivedStateFunc adapts a function to DerivedStateSource
type DerivedStateFunc func(profile string) ([]Cleaner, error)

func (f DerivedStateFunc) DerivedState(profile string) ([]Cleaner, error) {
	return f(profile)
}

type noDerivedState struct{}

func (noDerivedState) DerivedState(string) ([]Cleaner, error) { return nil, nil }

// Manager implements profile operations on top of a profile store and a
// secret store. It holds no state of its own.
type Manager struct {
	store   storage.ProfileStoreInterface
	secrets SecretStore
	derived DerivedStateSource
	audit   *audit.Logger
	logger  zerolog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithDerivedState sets the source of per-profile state removed on delete
func WithDerivedState(src DerivedStateSource) Option {
	return func(m *Manager) { m.derived = src }
}

// WithAuditLogger records profile and secret changes
func WithAuditLogger(l *audit.Logger) Option {
	return func(m *Manager) { m.audit = l }
}

// NewManager creates a Manager
func NewManager(store storage.ProfileStoreInterface, secrets SecretStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		secrets: secrets,
		derived: noDerivedState{},
		logger:  log.Account,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetProfile returns the named profile, or the default one when name is empty
func (m *Manager) GetProfile(name string) (*Profile, error) {
	if name == "" {
		if err := m.ValidateDefaultExists(); err != nil {
			return nil, err
		}
	}

	record, err := m.store.GetProfile(name)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, &ConfigurationError{Message: err.Error(), Help: CreateAccountHelp}
		}
		return nil, err
	}
	return m.view(record), nil
}

// ValidateDefaultExists fails when no default profile is set, telling
// apart an empty store from one where no profile was picked.
func (m *Manager) ValidateDefaultExists() error {
	if m.defaultExists() {
		return nil
	}

	existing := m.GetAllProfiles()
	if len(existing) == 0 {
		return configError(CreateAccountHelp, "No existing account.")
	}
	return configError(selectDefaultHelp(existing), "No default account set.")
}

// ProfileExists reports whether name resolves to a stored profile
func (m *Manager) ProfileExists(name string) bool {
	_, err := m.store.GetProfile(name)
	return err == nil
}

// IsDefaultProfile reports whether name is the current default
func (m *Manager) IsDefaultProfile(name string) bool {
	return m.defaultExists() && m.store.DefaultProfileName() == name
}

// SwitchDefault makes name the default profile
func (m *Manager) SwitchDefault(name string) error {
	profile, err := m.GetProfile(name)
	if err != nil {
		return err
	}

	previous := m.store.DefaultProfileName()
	if err := m.store.SwitchDefault(profile.Name()); err != nil {
		return fmt.Errorf("failed to switch default account: %w", err)
	}

	m.audit.LogDefaultSwitch(previous, profile.Name())
	m.logger.Debug().Str("from", previous).Str("to", profile.Name()).Msg("switched default profile")
	return nil
}

// CreateProfile adds a new profile. The first profile created with an
// address becomes the default.
func (m *Manager) CreateProfile(name string, fields storage.ProfileFields) error {
	if name == "" || name == types.Sentinel {
		return configError("", "'%s' is not a valid account name.", name)
	}
	if m.ProfileExists(name) {
		return configError("", "an account named '%s' already exists.", name)
	}

	err := m.store.CreateProfile(name, fields)
	m.audit.LogProfile(audit.EventProfileCreate, name, err, fieldDetails(fields))
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return configError("", "'%s' is not a valid account name.", name)
		}
		return fmt.Errorf("failed to create account '%s': %w", name, err)
	}

	m.logger.Debug().Str("profile", name).Msg("created profile")
	return nil
}

// UpdateProfile applies the set fields to an existing profile. When the
// address changes, a stored private key follows it.
func (m *Manager) UpdateProfile(name string, fields storage.ProfileFields) error {
	profile, err := m.GetProfile(name)
	if err != nil {
		return err
	}
	if fields.IsEmpty() {
		return nil
	}

	oldRef := profile.Ref()
	err = m.store.UpdateProfile(profile.Name(), fields)
	m.audit.LogProfile(audit.EventProfileUpdate, profile.Name(), err, fieldDetails(fields))
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return &ConfigurationError{Message: err.Error(), Help: CreateAccountHelp}
		}
		return fmt.Errorf("failed to update account '%s': %w", profile.Name(), err)
	}

	updated, err := m.store.GetProfile(profile.Name())
	if err != nil {
		return fmt.Errorf("failed to reload account '%s': %w", profile.Name(), err)
	}
	if newRef := refFor(updated); newRef != oldRef {
		if err := m.secrets.Move(oldRef, newRef); err != nil {
			return fmt.Errorf("account '%s' was updated but its stored private key could not be moved: %w", profile.Name(), err)
		}
	}
	return nil
}

// DeleteProfile removes a profile together with everything it owns, in
// this order: the stored private key, derived state, the record. A failure
// to remove the key aborts and leaves the record so the delete can be
// retried. Derived state is cleaned best effort.
func (m *Manager) DeleteProfile(name string) error {
	profile, err := m.GetProfile(name)
	if err != nil {
		return err
	}
	name = profile.Name()
	logger := m.logger.With().Str("profile", name).Logger()

	if err := m.deleteSecret(profile); err != nil {
		m.audit.LogProfile(audit.EventProfileDelete, name, err, nil)
		return err
	}

	failures := m.cleanDerivedState(name, logger)

	err = m.store.DeleteProfile(name)
	m.audit.LogProfile(audit.EventProfileDelete, name, err, map[string]interface{}{
		"derived_state_failures": failures,
	})
	if err != nil {
		return fmt.Errorf("failed to delete account '%s': %w", name, err)
	}

	logger.Debug().Int("derived_state_failures", failures).Msg("deleted profile")
	return nil
}

// DeleteAllProfiles deletes every profile and returns the names removed.
// A failing profile does not stop the others.
func (m *Manager) DeleteAllProfiles() ([]string, error) {
	var (
		deleted []string
		errs    []error
	)
	for _, profile := range m.GetAllProfiles() {
		if err := m.DeleteProfile(profile.Name()); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, profile.Name())
	}
	return deleted, errors.Join(errs...)
}

// GetAllProfiles returns every stored profile in file order
func (m *Manager) GetAllProfiles() []*Profile {
	records := m.store.GetAllProfiles()
	profiles := make([]*Profile, len(records))
	for i, r := range records {
		profiles[i] = m.view(r)
	}
	return profiles
}

// GetStoredSecret returns the private key stored for a profile
func (m *Manager) GetStoredSecret(name string) (string, bool, error) {
	profile, err := m.GetProfile(name)
	if err != nil {
		return "", false, err
	}
	return m.secrets.Get(profile.Ref())
}

// SetSecret stores the private key for a profile and reports whether it
// was stored. The caller validates the key beforehand.
func (m *Manager) SetSecret(ctx context.Context, secretValue, name string) (bool, error) {
	profile, err := m.GetProfile(name)
	if err != nil {
		return false, err
	}

	stored, err := m.secrets.Set(ctx, profile.Ref(), secretValue)
	m.audit.LogSecret(audit.EventSecretCreate, profile.Name(), m.secrets.BackendName(), stored, err)
	if err != nil {
		return false, fmt.Errorf("failed to store private key for '%s': %w", profile.Name(), err)
	}
	return stored, nil
}

func (m *Manager) deleteSecret(profile *Profile) error {
	ref := profile.Ref()
	_, ok, err := m.secrets.Get(ref)
	if err != nil {
		return fmt.Errorf("failed to read stored private key for '%s': %w", profile.Name(), err)
	}
	if !ok {
		return nil
	}

	err = m.secrets.Delete(ref)
	m.audit.LogSecret(audit.EventSecretDelete, profile.Name(), m.secrets.BackendName(), err == nil, err)
	if err != nil {
		return fmt.Errorf("failed to delete stored private key for '%s': %w", profile.Name(), err)
	}
	return nil
}

func (m *Manager) cleanDerivedState(name string, logger zerolog.Logger) int {
	cleaners, err := m.derived.DerivedState(name)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to enumerate derived state")
		return 1
	}

	failures := 0
	for _, c := range cleaners {
		if err := c.Clean(); err != nil {
			failures++
			logger.Warn().Err(err).Msg("failed to clean derived state")
		}
	}
	return failures
}

func (m *Manager) defaultExists() bool {
	record, err := m.store.GetProfile("")
	return err == nil && record.Name() != "" && record.Name() != types.Sentinel
}

func (m *Manager) view(record *storage.Record) *Profile {
	return &Profile{
		record:    record,
		isDefault: m.store.DefaultProfileName() == record.Name(),
		secrets:   m.secrets,
	}
}

func fieldDetails(fields storage.ProfileFields) map[string]interface{} {
	details := make(map[string]interface{})
	if fields.Address != nil {
		details["address"] = *fields.Address
	}
	if fields.Network != nil {
		details["network"] = string(*fields.Network)
	}
	if fields.IgnoreTLSErrors != nil {
		details["ignore_tls_errors"] = *fields.IgnoreTLSErrors
	}
	return details
}
