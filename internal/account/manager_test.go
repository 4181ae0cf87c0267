package account

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/in3-cli/in3cli/internal/audit"
	"github.com/in3-cli/in3cli/internal/secret"
	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/pkg/types"
)

type testEnv struct {
	manager *Manager
	store   *storage.MemoryProfileStore
	backend *secret.MemoryBackend
	secrets *secret.Store
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store := storage.NewMemoryProfileStore()
	backend := secret.NewMemoryBackend(true)
	secrets := secret.NewStore(backend, types.ProductName, nil)
	return &testEnv{
		manager: NewManager(store, secrets, opts...),
		store:   store,
		backend: backend,
		secrets: secrets,
	}
}

func fields(address string, network types.Network) storage.ProfileFields {
	return storage.Fields(address, network, nil)
}

type cleanerFunc func() error

func (f cleanerFunc) Clean() error { return f() }

func TestCreateAndGetProfile(t *testing.T) {
	env := newTestEnv(t)
	ignore := false

	err := env.manager.CreateProfile("alice", storage.Fields("0xABC", types.Goerli, &ignore))
	require.NoError(t, err)

	profile, err := env.manager.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Name())
	assert.Equal(t, "0xABC", profile.Address())
	assert.Equal(t, types.Goerli, profile.Network())
	assert.False(t, profile.IgnoreTLSErrors())
	assert.True(t, profile.IsDefault())

	require.NoError(t, env.manager.UpdateProfile("alice", fields("0xDEF", "")))

	profile, err = env.manager.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "0xDEF", profile.Address())
	assert.Equal(t, types.Goerli, profile.Network())
}

func TestCreateProfileDuplicate(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))

	err := env.manager.CreateProfile("alice", fields("0xDEF", ""))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, "an account named 'alice' already exists.", err.Error())

	profile, err := env.manager.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "0xABC", profile.Address(), "rejected create must not touch the profile")

	// the store itself stays update-like
	require.NoError(t, env.store.CreateProfile("alice", fields("0xDEF", "")))
	profile, err = env.manager.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, "0xDEF", profile.Address())
}

func TestCreateProfileReservedName(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"", types.Sentinel, storage.InternalSection} {
		err := env.manager.CreateProfile(name, fields("0xABC", ""))
		assert.True(t, IsConfigurationError(err), "name %q: %v", name, err)
	}
	assert.Empty(t, env.manager.GetAllProfiles())
}

func TestFirstProfileBecomesDefault(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.manager.CreateProfile("first", fields("0x1", "")))
	require.NoError(t, env.manager.CreateProfile("second", fields("0x2", "")))

	assert.True(t, env.manager.IsDefaultProfile("first"))
	assert.False(t, env.manager.IsDefaultProfile("second"))

	profile, err := env.manager.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "first", profile.Name())
}

func TestGetProfileNoProfiles(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.manager.GetProfile("")
	require.Error(t, err)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "No existing account.", ce.Message)
	assert.Equal(t, CreateAccountHelp, ce.Help)
}

func TestGetProfileNoDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CreateProfile("bob", storage.ProfileFields{}))

	_, err := env.manager.GetProfile("")
	require.Error(t, err)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "No default account set.", ce.Message)
	assert.Contains(t, ce.Help, "in3 account use")
	assert.Contains(t, ce.Help, "bob")
}

func TestGetProfileMissing(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))

	_, err := env.manager.GetProfile("ghost")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, "account 'ghost' does not exist.", err.Error())
	assert.Equal(t, CreateAccountHelp, HelpFor(err))
}

func TestDeleteDefaultResetsPointer(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.manager.CreateProfile("a", fields("0x1", "")))
	require.NoError(t, env.manager.CreateProfile("b", fields("0x2", "")))

	require.NoError(t, env.manager.DeleteProfile("a"))

	_, err := env.manager.GetProfile("")
	require.Error(t, err)
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "No default account set.", ce.Message)

	require.NoError(t, env.manager.DeleteProfile("b"))
	_, err = env.manager.GetProfile("")
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "No existing account.", ce.Message)
}

func TestDeleteProfileRemovesSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))

	stored, err := env.manager.SetSecret(ctx, "private-key", "alice")
	require.NoError(t, err)
	require.True(t, stored)

	profile, err := env.manager.GetProfile("alice")
	require.NoError(t, err)
	assert.True(t, profile.HasStoredSecret())
	ref := profile.Ref()

	require.NoError(t, env.manager.DeleteProfile("alice"))

	_, ok, err := env.secrets.Get(ref)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, env.backend.Len())
}

func TestDeleteProfileCleansDerivedState(t *testing.T) {
	var cleaned []string
	source := DerivedStateFunc(func(profile string) ([]Cleaner, error) {
		return []Cleaner{
			cleanerFunc(func() error { cleaned = append(cleaned, profile+"/blocks"); return nil }),
			cleanerFunc(func() error { return errors.New("locked") }),
			cleanerFunc(func() error { cleaned = append(cleaned, profile+"/txs"); return nil }),
		}, nil
	})
	env := newTestEnv(t, WithDerivedState(source))
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))

	require.NoError(t, env.manager.DeleteProfile("alice"))

	assert.Equal(t, []string{"alice/blocks", "alice/txs"}, cleaned, "a failing cleaner must not stop the others")
	assert.False(t, env.manager.ProfileExists("alice"))
}

func TestDeleteProfileDerivedStateEnumerationFails(t *testing.T) {
	source := DerivedStateFunc(func(string) ([]Cleaner, error) {
		return nil, errors.New("database locked")
	})
	env := newTestEnv(t, WithDerivedState(source))
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))

	require.NoError(t, env.manager.DeleteProfile("alice"))
	assert.False(t, env.manager.ProfileExists("alice"))
}

type failingSecrets struct {
	*secret.Store
	deleteErr error
}

func (f *failingSecrets) Delete(ref secret.Ref) error { return f.deleteErr }

func TestDeleteProfileSecretFailureKeepsRecord(t *testing.T) {
	store := storage.NewMemoryProfileStore()
	inner := secret.NewStore(secret.NewMemoryBackend(true), types.ProductName, nil)
	secrets := &failingSecrets{Store: inner, deleteErr: errors.New("keyring locked")}
	manager := NewManager(store, secrets)

	require.NoError(t, manager.CreateProfile("alice", fields("0xABC", "")))
	_, err := manager.SetSecret(context.Background(), "private-key", "alice")
	require.NoError(t, err)

	err = manager.DeleteProfile("alice")
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
	assert.ErrorIs(t, err, secrets.deleteErr)
	assert.True(t, manager.ProfileExists("alice"), "record must survive a failed secret delete")
}

func TestDeleteAllProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		require.NoError(t, env.manager.CreateProfile(name, fields("0x"+name, "")))
		stored, err := env.manager.SetSecret(ctx, "key-"+name, name)
		require.NoError(t, err)
		require.True(t, stored)
	}
	require.Equal(t, 2, env.backend.Len())

	deleted, err := env.manager.DeleteAllProfiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, deleted)
	assert.Empty(t, env.manager.GetAllProfiles())
	assert.Equal(t, 0, env.backend.Len())
}

func TestSwitchDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.manager.CreateProfile("a", fields("0x1", "")))
	require.NoError(t, env.manager.CreateProfile("b", fields("0x2", "")))

	require.NoError(t, env.manager.SwitchDefault("b"))
	assert.True(t, env.manager.IsDefaultProfile("b"))

	err := env.manager.SwitchDefault("missing")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, env.manager.IsDefaultProfile("b"), "failed switch must keep the previous default")
}

func TestSetSecretDeclinedConsent(t *testing.T) {
	store := storage.NewMemoryProfileStore()
	backend := secret.NewMemoryBackend(false)
	secrets := secret.NewStore(backend, types.ProductName, func(ctx context.Context, prompt string) (bool, error) {
		return false, nil
	})
	manager := NewManager(store, secrets)
	require.NoError(t, manager.CreateProfile("alice", fields("0xABC", "")))

	stored, err := manager.SetSecret(context.Background(), "private-key", "alice")
	require.NoError(t, err)
	assert.False(t, stored)

	_, ok, err := manager.GetStoredSecret("alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProfileNoOp(t *testing.T) {
	env := newTestEnv(t)
	ignore := true
	require.NoError(t, env.manager.CreateProfile("alice", storage.Fields("0xABC", types.Kovan, &ignore)))

	before, err := env.store.GetProfile("alice")
	require.NoError(t, err)

	require.NoError(t, env.manager.UpdateProfile("alice", storage.ProfileFields{}))

	after, err := env.store.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, before.Values(), after.Values())
}

func TestUpdateProfileMovesSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))
	_, err := env.manager.SetSecret(ctx, "private-key", "alice")
	require.NoError(t, err)

	require.NoError(t, env.manager.UpdateProfile("alice", fields("0xDEF", "")))

	secretValue, ok, err := env.manager.GetStoredSecret("alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "private-key", secretValue)
	assert.Equal(t, 1, env.backend.Len())
}

func TestUpdateProfileMissing(t *testing.T) {
	env := newTestEnv(t)
	err := env.manager.UpdateProfile("ghost", fields("0xABC", ""))
	assert.True(t, IsConfigurationError(err))
}

func TestGetAllProfiles(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.manager.CreateProfile("a", fields("0x1", "")))
	require.NoError(t, env.manager.CreateProfile("b", fields("0x2", "")))
	_, err := env.manager.SetSecret(context.Background(), "key", "b")
	require.NoError(t, err)

	profiles := env.manager.GetAllProfiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, "a", profiles[0].Name())
	assert.True(t, profiles[0].IsDefault())
	assert.False(t, profiles[0].HasStoredSecret())
	assert.Equal(t, "b", profiles[1].Name())
	assert.False(t, profiles[1].IsDefault())
	assert.True(t, profiles[1].HasStoredSecret())
	assert.Equal(t, "a: Address=0x1", profiles[0].String())
}

func TestGetStoredSecretUsesDefault(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.manager.CreateProfile("alice", fields("0xABC", "")))
	_, err := env.manager.SetSecret(context.Background(), "private-key", "")
	require.NoError(t, err)

	secretValue, ok, err := env.manager.GetStoredSecret("")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "private-key", secretValue)
}

func TestManagerWithFileStoreAndAudit(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewProfileStore(filepath.Join(dir, storage.ProfilesFileName))
	require.NoError(t, err)
	logger, err := audit.NewLogger(audit.DefaultConfig(filepath.Join(dir, "audit.log")))
	require.NoError(t, err)
	defer logger.Close()

	secrets := secret.NewStore(secret.NewMemoryBackend(true), types.ProductName, nil)
	manager := NewManager(store, secrets, WithAuditLogger(logger))

	require.NoError(t, manager.CreateProfile("alice", fields("0xABC", types.Goerli)))
	_, err = manager.SetSecret(context.Background(), "private-key", "alice")
	require.NoError(t, err)
	require.NoError(t, manager.DeleteProfile("alice"))

	events, err := logger.Search(audit.Query{Profiles: []string{"alice"}})
	require.NoError(t, err)

	var got []audit.EventType
	for _, e := range events {
		got = append(got, e.Type)
	}
	assert.Equal(t, []audit.EventType{
		audit.EventProfileCreate,
		audit.EventSecretCreate,
		audit.EventSecretDelete,
		audit.EventProfileDelete,
	}, got)
}
