package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/in3-cli/in3cli/internal/config"
	"github.com/in3-cli/in3cli/internal/output"
	"github.com/in3-cli/in3cli/pkg/types"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage in3 settings",
	Long: `Show and edit settings.yaml: logging, the secret store backend, timeouts
and the RPC endpoints of every network.`,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file with the default values",
	Args:  cobra.NoArgs,
	RunE:  runSettingsInit,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetRPCCmd = &cobra.Command{
	Use:   "set-rpc [network] [url...]",
	Short: "Replace the RPC endpoints of a network",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSettingsSetRPC,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetRPCCmd)
}

func settingsPath() string {
	if settingsFile != "" {
		return settingsFile
	}
	return filepath.Join(config.GetHomeDir(), config.SettingsFileName)
}

func runSettingsInit(cmd *cobra.Command, args []string) error {
	a := current
	path := settingsPath()

	if _, err := os.Stat(path); err == nil {
		ok, err := a.prompt.Ask(cmd.Context(), fmt.Sprintf("\n'%s' already exists. Overwrite it with the defaults? (y/n): ", path))
		if err != nil || !ok {
			return err
		}
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	a.printf("Settings written to %s\n", path)
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a := current
	cfg := a.cfg

	a.printf("Settings file: %s\n", settingsPath())
	a.printf("Log level: %s\n", cfg.Logging.Level)
	a.printf("Audit log: %s\n", cfg.Logging.AuditFile)
	a.printf("Secret store: %s (%s)\n", cfg.Secrets.Backend, a.secrets.BackendName())
	a.printf("Request timeout: %s\n", cfg.Chain.Timeout)
	a.printf("Block wait: %s\n\n", cfg.Chain.BlockWait)

	t := output.Table{Header: []string{"Network", "Chain ID", "RPC URLs"}}
	for _, name := range networkNames(cfg) {
		nc := cfg.Network(types.Network(name))
		t.Rows = append(t.Rows, []string{name, strconv.FormatInt(nc.ChainID, 10), strings.Join(nc.RPCURLs, ", ")})
	}
	a.println(output.RenderTable(t))
	return nil
}

func runSettingsSetRPC(cmd *cobra.Command, args []string) error {
	a := current
	network, err := types.ParseNetwork(args[0])
	if err != nil {
		return err
	}

	urls := args[1:]
	for _, u := range urls {
		if err := a.validator.ValidateURL(u); err != nil {
			return err
		}
	}

	cfg := a.cfg
	if cfg.Networks == nil {
		cfg.Networks = map[string]config.NetworkConfig{}
	}
	nc := cfg.Network(network)
	nc.RPCURLs = urls
	cfg.Networks[string(network)] = nc

	if err := cfg.Save(settingsPath()); err != nil {
		return err
	}
	a.printf("RPC endpoints of %s updated.\n", network)
	return nil
}

// networkNames lists the built-in networks first, then any extra entries
func networkNames(cfg *config.Config) []string {
	names := types.NetworkNames()
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	var extra []string
	for name := range cfg.Networks {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
