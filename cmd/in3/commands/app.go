package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/account"
	"github.com/in3-cli/in3cli/internal/audit"
	"github.com/in3-cli/in3cli/internal/chain"
	"github.com/in3-cli/in3cli/internal/config"
	"github.com/in3-cli/in3cli/internal/cursor"
	"github.com/in3-cli/in3cli/internal/log"
	"github.com/in3-cli/in3cli/internal/output"
	"github.com/in3-cli/in3cli/internal/secret"
	"github.com/in3-cli/in3cli/internal/storage"
	"github.com/in3-cli/in3cli/internal/ui"
	"github.com/in3-cli/in3cli/internal/validation"
	"github.com/in3-cli/in3cli/pkg/types"
)

// app holds the stores and helpers shared by every command of one invocation
type app struct {
	cfg       *config.Config
	manager   *account.Manager
	secrets   *secret.Store
	cursors   cursor.Store
	audit     *audit.Logger
	prompt    *ui.Confirmer
	validator *validation.Validator
	out       io.Writer
	dial      func(ctx context.Context, opts chain.Options) (*chain.Client, error)
}

// appFactory builds the application once the settings are loaded
var appFactory = newApp

func newApp(cmd *cobra.Command, cfg *config.Config) (*app, error) {
	if err := config.EnsureHomeDir(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	profiles, err := storage.NewProfileStore(config.ProfilesPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts: %w", err)
	}

	mode, err := secret.ParseMode(cfg.Secrets.Backend)
	if err != nil {
		return nil, err
	}
	backend, err := secret.OpenBackend(mode, config.GetHomeDir(), cfg.Secrets.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	auditLogger, err := audit.NewLogger(audit.DefaultConfig(cfg.Logging.AuditFile))
	if err != nil {
		log.CLI.Warn().Err(err).Msg("audit log disabled")
		auditLogger = nil
	}

	return assemble(cmd, cfg, profiles, backend, cursor.NewLazy(config.CursorsPath()), auditLogger), nil
}

// assemble wires the stores into an app. Tests call it with in-memory stores.
func assemble(cmd *cobra.Command, cfg *config.Config, profiles storage.ProfileStoreInterface,
	backend secret.Backend, cursors cursor.Store, auditLogger *audit.Logger) *app {
	prompt := ui.NewConfirmer(types.Confirmation{
		AssumeYes:   assumeYes || cfg.UI.AssumeYes,
		Timeout:     cfg.UI.ConfirmationTimeout,
		DefaultDeny: true,
	}, cmd.InOrStdin(), cmd.ErrOrStderr())

	secrets := secret.NewStore(backend, types.ProductName, prompt.Ask)
	manager := account.NewManager(profiles, secrets,
		account.WithDerivedState(derivedState(cursors)),
		account.WithAuditLogger(auditLogger),
	)

	return &app{
		cfg:       cfg,
		manager:   manager,
		secrets:   secrets,
		cursors:   cursors,
		audit:     auditLogger,
		prompt:    prompt,
		validator: validation.NewValidator(),
		out:       cmd.OutOrStdout(),
		dial:      chain.Dial,
	}
}

// derivedState exposes the cursors of a profile as removable state
func derivedState(store cursor.Store) account.DerivedStateFunc {
	return func(profile string) ([]account.Cleaner, error) {
		handles, err := cursor.ForProfile(store, profile)
		if err != nil {
			return nil, err
		}
		cleaners := make([]account.Cleaner, len(handles))
		for i, h := range handles {
			cleaners[i] = h
		}
		return cleaners, nil
	}
}

// Close flushes the audit log and releases the cursor database
func (a *app) Close() {
	if err := a.cursors.Close(); err != nil {
		log.CLI.Warn().Err(err).Msg("failed to close cursor store")
	}
	if err := a.audit.Close(); err != nil {
		log.CLI.Warn().Err(err).Msg("failed to close audit log")
	}
}

// target is the network a chain command talks to
type target struct {
	profile *account.Profile
	network types.Network
	opts    chain.Options
}

// resolveTarget picks the account and network for a chain command. The
// --chain flag lets read-only commands run before any account exists.
func (a *app) resolveTarget() (*target, error) {
	profile, err := a.manager.GetProfile(accountName)
	if err != nil && (chainName == "" || accountName != "" || !account.IsConfigurationError(err)) {
		return nil, err
	}

	t := &target{profile: profile, network: types.DefaultNetwork}
	if profile != nil && profile.Network().Valid() {
		t.network = profile.Network()
	}
	if chainName != "" {
		network, err := types.ParseNetwork(chainName)
		if err != nil {
			return nil, err
		}
		t.network = network
	}

	nc := a.cfg.Network(t.network)
	t.opts = chain.Options{
		URLs:               nc.RPCURLs,
		ChainID:            nc.ChainID,
		InsecureSkipVerify: profile != nil && profile.IgnoreTLSErrors(),
		Timeout:            a.cfg.Chain.Timeout,
		RateLimit:          a.cfg.Chain.RateLimit,
	}
	return t, nil
}

// client dials the network of the current target
func (a *app) client(ctx context.Context) (*chain.Client, *target, error) {
	t, err := a.resolveTarget()
	if err != nil {
		return nil, nil, err
	}
	c, err := a.dial(ctx, t.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", t.network, err)
	}
	return c, t, nil
}

// formatter parses a --format value
func (a *app) formatter(format string) (*output.Formatter, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.New(f, a.out), nil
}

func (a *app) println(args ...interface{}) {
	fmt.Fprintln(a.out, args...)
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
