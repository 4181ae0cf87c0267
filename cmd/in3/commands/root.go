package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/account"
	"github.com/in3-cli/in3cli/internal/config"
	"github.com/in3-cli/in3cli/internal/log"
)

var (
	version      = "dev"
	settingsFile string
	accountName  string
	chainName    string
	assumeYes    bool
	verbose      bool
)

// current is the application built for this invocation
var current *app

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "in3",
	Short: "in3 command line client",
	Long: `A command line client for Ethereum style JSON-RPC networks.

Accounts bundle an address, a network and connection settings. Private keys
are kept in the system keyring, or in an encrypted file when no keyring is
available.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if current != nil {
		if err != nil && !account.IsConfigurationError(err) && ctx.Err() == nil {
			current.audit.LogError("cli", err, map[string]interface{}{"command": cmd.CommandPath()})
		}
		current.Close()
		current = nil
	}
	return err
}

func init() {
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default is ~/.in3cli/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&accountName, "account", "", "account to use (overrides the default account)")
	rootCmd.PersistentFlags().StringVarP(&chainName, "chain", "c", "", "network to use (overrides the account's network)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "assume-yes", "y", false, "answer yes to every confirmation")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(settingsFile)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log.Init(level, cfg.Logging.JSON)

	a, err := appFactory(cmd, cfg)
	if err != nil {
		return err
	}
	current = a

	log.CLI.Debug().Str("command", cmd.CommandPath()).Str("secrets", a.secrets.BackendName()).Msg("starting")
	return nil
}
