package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/in3-cli/in3cli/internal/account"
	"github.com/in3-cli/in3cli/internal/chain"
	"github.com/in3-cli/in3cli/internal/cursor"
	"github.com/in3-cli/in3cli/internal/secret"
	"github.com/in3-cli/in3cli/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestAccountCreateFirstBecomesDefault(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)
	assert.Equal(t, "Successfully created account 'alice'.\n", r.stdout)
	assert.Contains(t, r.stderr, privateKeyPrompt)
	assert.Equal(t, "alice", env.profiles.DefaultProfileName())

	env.mustRun(t, "n\n", "account", "create", "-n", "bob", "--address", otherAddr, "-c", "goerli")
	assert.Equal(t, "alice", env.profiles.DefaultProfileName(), "second account must not take over the default")

	r = env.mustRun(t, "", "account", "show", "bob")
	assert.Equal(t, "bob:\n\tAddress: "+otherAddr+"\n\tChain: goerli\n\tIgnore SSL Errors: false\n", r.stdout)
}

func TestAccountCreateDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)

	r := env.run(t, "", "account", "create", "-n", "alice", "--address", otherAddr)
	require.Error(t, r.err)
	assert.Equal(t, "an account named 'alice' already exists.", r.err.Error())
}

func TestAccountCreateInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := [][]string{
		{"account", "create", "-n", "bad name"},
		{"account", "create", "-n", "__DEFAULT__"},
		{"account", "create", "-n", "alice", "--address", "0x1234"},
		{"account", "create", "-n", "alice", "-c", "ropsten"},
	}
	for _, args := range tests {
		r := env.run(t, "", args...)
		assert.Error(t, r.err, strings.Join(args, " "))
	}
	assert.Empty(t, env.profiles.GetAllProfiles())
}

func TestAccountCreateWithPrivateKey(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "", "account", "create", "-n", "alice", "--private-key", testKeyHex)
	assert.Equal(t, "Successfully created account 'alice'.\n", r.stdout)
	assert.NotContains(t, r.stderr, privateKeyPrompt)

	// the address is taken from the key, so the account is complete
	assert.Equal(t, "alice", env.profiles.DefaultProfileName())
	key, ok := env.storedSecret("alice", testAddrHex)
	require.True(t, ok)
	assert.Equal(t, testKeyHex, key)

	r = env.mustRun(t, "", "account", "show")
	assert.Contains(t, r.stdout, "alice:\n\tAddress: "+testAddrHex)
	assert.Contains(t, r.stdout, "\t* Private key is set.")
}

func TestAccountCreateWrongPrivateKey(t *testing.T) {
	env := newTestEnv(t)

	r := env.run(t, "", "account", "create", "-n", "alice", "--address", otherAddr, "--private-key", testKeyHex)
	require.ErrorIs(t, r.err, chain.ErrKeyMismatch)
	assert.Contains(t, r.stderr, "Private key not stored!")
	assert.Empty(t, r.stdout)
	assert.Equal(t, 0, env.backend.Len())
}

func TestAccountCreatePromptsForKey(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "y\n"+testKeyHex+"\n", "account", "create", "-n", "alice", "--address", testAddrHex)
	assert.Contains(t, r.stderr, privateKeyPrompt)
	assert.Contains(t, r.stderr, "Private key: ")
	_, ok := env.storedSecret("alice", testAddrHex)
	assert.True(t, ok)
}

func TestAccountCreatePromptedKeyBecomesDefault(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "y\n"+testKeyHex+"\n", "account", "create", "-n", "alice")
	assert.Contains(t, r.stderr, "Private key: ")
	assert.Equal(t, "alice", env.profiles.DefaultProfileName())
	_, ok := env.storedSecret("alice", testAddrHex)
	assert.True(t, ok)

	r = env.mustRun(t, "", "account", "show")
	assert.Contains(t, r.stdout, "alice:\n\tAddress: "+testAddrHex)
	assert.Contains(t, r.stdout, "\t* Private key is set.")
}

func TestAccountCreateSkipsKeyPromptWithAssumeYes(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "", "-y", "account", "create", "-n", "alice", "--address", testAddrHex)
	assert.NotContains(t, r.stderr, privateKeyPrompt)
	assert.Equal(t, 0, env.backend.Len())
}

func TestAccountKeyConsentOnInsecureBackend(t *testing.T) {
	env := newTestEnv(t)
	env.backend = secret.NewMemoryBackend(false)

	r := env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--private-key", testKeyHex)
	assert.Contains(t, r.stderr, secret.ConsentPrompt)
	assert.Equal(t, "Successfully created account 'alice'.\n", r.stdout)
	assert.Equal(t, 0, env.backend.Len(), "declined consent stores nothing")

	r = env.mustRun(t, testKeyHex+"\ny\n", "account", "reset-private-key", "alice")
	assert.Equal(t, "Private key updated for account 'alice'\n", r.stdout)
	assert.Equal(t, 1, env.backend.Len())
}

func TestAccountUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)

	r := env.mustRun(t, "n\n", "account", "update", "-n", "alice", "-c", "ewc", "--disable-ssl-errors")
	assert.Equal(t, "account 'alice' has been updated.\n", r.stdout)

	r = env.mustRun(t, "", "account", "show", "alice")
	assert.Contains(t, r.stdout, "\tAddress: "+testAddrHex)
	assert.Contains(t, r.stdout, "\tChain: ewc")
	assert.Contains(t, r.stdout, "\tIgnore SSL Errors: true")

	r = env.run(t, "", "account", "update", "-n", "bob", "-c", "ewc")
	require.Error(t, r.err)
	assert.Equal(t, "account 'bob' does not exist.", r.err.Error())
}

func TestAccountListAndShowWithoutAccounts(t *testing.T) {
	env := newTestEnv(t)

	r := env.run(t, "", "account", "list")
	require.Error(t, r.err)
	assert.Equal(t, "No existing account.", r.err.Error())
	assert.Equal(t, account.CreateAccountHelp, account.HelpFor(r.err))

	r = env.run(t, "", "account", "show")
	require.Error(t, r.err)
	assert.Equal(t, "No existing account.", r.err.Error())
}

func TestAccountShowWithoutDefault(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice")

	r := env.run(t, "", "account", "show")
	require.Error(t, r.err)
	assert.Equal(t, "No default account set.", r.err.Error())
	assert.Contains(t, account.HelpFor(r.err), "alice: Address="+types.Sentinel)
}

func TestAccountList(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)
	env.mustRun(t, "n\n", "account", "create", "-n", "bob")

	r := env.mustRun(t, "", "account", "list")
	assert.Equal(t, "alice: Address="+testAddrHex+"\nbob: Address="+types.Sentinel+"\n", r.stdout)
}

func TestAccountUse(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)
	env.mustRun(t, "n\n", "account", "create", "-n", "bob", "--address", otherAddr)

	r := env.mustRun(t, "", "account", "use", "bob")
	assert.Equal(t, "bob has been set as the default account.\n", r.stdout)
	assert.Equal(t, "bob", env.profiles.DefaultProfileName())

	r = env.run(t, "", "account", "use", "carol")
	require.Error(t, r.err)
	assert.Equal(t, "account 'carol' does not exist.", r.err.Error())
}

func TestAccountDeleteDefault(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "account", "create", "-n", "alice", "--private-key", testKeyHex)
	require.NoError(t, env.cursors.Set("alice", cursor.NewBlocks, 7))

	r := env.mustRun(t, "y\n", "account", "delete")
	assert.Contains(t, r.stderr, "\n'alice' is currently the default account!\n"+deleteAccountPrompt)
	assert.Equal(t, "account 'alice' has been deleted.\n", r.stdout)

	assert.Empty(t, env.profiles.GetAllProfiles())
	assert.Equal(t, "", env.profiles.DefaultProfileName())
	assert.Equal(t, 0, env.backend.Len(), "stored key must go with the account")
	names, err := env.cursors.List("alice")
	require.NoError(t, err)
	assert.Empty(t, names, "cursors must go with the account")
}

func TestAccountDeleteDeclined(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)
	env.mustRun(t, "n\n", "account", "create", "-n", "bob", "--address", otherAddr)

	r := env.mustRun(t, "n\n", "account", "delete", "bob")
	assert.Contains(t, r.stderr, deleteAccountPrompt)
	assert.NotContains(t, r.stderr, "currently the default account")
	assert.Empty(t, r.stdout)
	assert.Len(t, env.profiles.GetAllProfiles(), 2)
}

func TestAccountDeleteAll(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "", "account", "delete-all", "-y")
	assert.Equal(t, "\nNo accounts exist. Nothing to delete.\n", r.stdout)

	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)
	env.mustRun(t, "n\n", "account", "create", "-n", "bob", "--address", otherAddr)

	r = env.mustRun(t, "y\n", "account", "delete-all")
	assert.Contains(t, r.stderr, "the following accounts?\n\talice\n\tbob\n\n")
	assert.Equal(t, "account 'alice' has been deleted.\naccount 'bob' has been deleted.\n", r.stdout)
	assert.Empty(t, env.profiles.GetAllProfiles())
}

func TestAccountResetPrivateKey(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "n\n", "account", "create", "-n", "alice", "--address", testAddrHex)

	r := env.mustRun(t, testKeyHex+"\n", "account", "reset-private-key")
	assert.Equal(t, "Private key updated for account 'alice'\n", r.stdout)
	_, ok := env.storedSecret("alice", testAddrHex)
	assert.True(t, ok)

	r = env.run(t, "not-a-key\n", "account", "reset-private-key", "alice")
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "Private key not stored!")
	assert.NotContains(t, r.err.Error(), "not-a-key")
}

func TestAccountGenerate(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "", "account", "generate", "-n", "fresh")
	assert.Contains(t, r.stdout, "Successfully created account 'fresh'.")
	assert.Contains(t, r.stdout, "\tPath: m/44'/60'/0'/0/0")
	assert.Contains(t, r.stderr, "WARNING:")

	records := env.profiles.GetAllProfiles()
	require.Len(t, records, 1)
	address := records[0].Address()
	require.NotEmpty(t, address)

	key, ok := env.storedSecret("fresh", address)
	require.True(t, ok)
	recovered, err := chain.RecoverAddress(key)
	require.NoError(t, err)
	assert.Equal(t, address, recovered.Hex())
}

func TestAccountRecover(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, testMnemonic+"\n", "account", "recover", "-n", "restored")
	assert.Contains(t, r.stdout, "\tAddress: 0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	assert.Equal(t, "restored", env.profiles.DefaultProfileName())

	r = env.mustRun(t, testMnemonic+"\n", "account", "recover", "-n", "second", "--index", "1")
	assert.NotContains(t, r.stdout, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94")

	r = env.run(t, "abandon abandon\n", "account", "recover", "-n", "broken")
	require.Error(t, r.err)
	assert.Equal(t, "invalid recovery phrase", r.err.Error())
}
