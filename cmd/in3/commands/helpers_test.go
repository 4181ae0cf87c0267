package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/in3-cli/in3cli/internal/audit"
	"github.com/in3-cli/in3cli/internal/config"
	"github.com/in3-cli/in3cli/internal/cursor"
	"github.com/in3-cli/in3cli/internal/secret"
	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/pkg/types"
)

const (
	testKeyHex  = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
	testAddrHex = "0x970E8128AB834E8EAC17Ab8E3812F010678CF791"
	otherAddr   = "0x00000000000000000000000000000000000000aA"
)

type testEnv struct {
	profiles *storage.MemoryProfileStore
	backend  *secret.MemoryBackend
	cursors  *cursor.MemoryStore
	rpcURL   string
	// auditPath, when set, gives every run its own audit logger on that file
	auditPath string
}

type result struct {
	stdout string
	stderr string
	err    error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("IN3CLI_HOME", t.TempDir())

	env := &testEnv{
		profiles: storage.NewMemoryProfileStore(),
		backend:  secret.NewMemoryBackend(true),
		cursors:  cursor.NewMemoryStore(),
	}

	appFactory = func(cmd *cobra.Command, cfg *config.Config) (*app, error) {
		if env.rpcURL != "" {
			if cfg.Networks == nil {
				cfg.Networks = map[string]config.NetworkConfig{}
			}
			cfg.Networks[string(types.Mainnet)] = config.NetworkConfig{ChainID: 1337, RPCURLs: []string{env.rpcURL}}
		}
		cfg.Chain.BlockWait = time.Second
		cfg.Chain.PollInterval = 10 * time.Millisecond
		var auditLogger *audit.Logger
		if env.auditPath != "" {
			cfg.Logging.AuditFile = env.auditPath
			l, err := audit.NewLogger(audit.DefaultConfig(env.auditPath))
			if err != nil {
				return nil, err
			}
			auditLogger = l
		}
		return assemble(cmd, cfg, env.profiles, env.backend, env.cursors, auditLogger), nil
	}
	t.Cleanup(func() { appFactory = newApp })

	return env
}

// run executes the root command with args, feeding input to prompts
func (e *testEnv) run(t *testing.T, input string, args ...string) result {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)

	err := Execute(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// mustRun is run that fails the test on error
func (e *testEnv) mustRun(t *testing.T, input string, args ...string) result {
	t.Helper()
	r := e.run(t, input, args...)
	if r.err != nil {
		t.Fatalf("in3 %s: %v\nstderr: %s", strings.Join(args, " "), r.err, r.stderr)
	}
	return r
}

func (e *testEnv) storedSecret(name, address string) (string, bool) {
	s, err := e.backend.Get(secret.ServiceName(types.ProductName, name), address)
	return s, err == nil
}

// resetFlags restores every flag to its default between runs; the flag
// variables are package level and outlive a single Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
