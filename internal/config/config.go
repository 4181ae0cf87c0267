package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/in3-cli/in3cli/pkg/types"
)

// ErrConfigNotFound is returned by Load when an explicitly requested settings file is missing.
var ErrConfigNotFound = errors.New("configuration file not found")

const (
	// SettingsFileName is the settings file inside the home directory
	SettingsFileName = "settings.yaml"
	// ProfilesFileName is the profile file inside the home directory
	ProfilesFileName = "config.cfg"

	homeEnv = "IN3CLI_HOME"
)

// Config represents the application settings. Profiles live in their own
// file; this only holds tool behaviour.
type Config struct {
	Logging  LoggingConfig            `mapstructure:"logging"`
	Secrets  SecretsConfig            `mapstructure:"secrets"`
	Chain    ChainConfig              `mapstructure:"chain"`
	UI       UIConfig                 `mapstructure:"ui"`
	Networks map[string]NetworkConfig `mapstructure:"networks"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	JSON      bool   `mapstructure:"json"`
	AuditFile string `mapstructure:"audit_file"`
}

// SecretsConfig selects where private keys are kept
type SecretsConfig struct {
	Backend    string `mapstructure:"backend"`
	Passphrase string `mapstructure:"passphrase"`
}

// ChainConfig bounds network calls
type ChainConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	BlockWait    time.Duration `mapstructure:"block_wait"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// RateLimit caps RPC requests per second; zero means unlimited
	RateLimit float64 `mapstructure:"rate_limit"`
}

// UIConfig represents prompt settings
type UIConfig struct {
	AssumeYes           bool          `mapstructure:"assume_yes"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
}

// NetworkConfig lists the JSON-RPC endpoints of a network
type NetworkConfig struct {
	ChainID int64    `mapstructure:"chain_id"`
	RPCURLs []string `mapstructure:"rpc_urls"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "warn",
		},
		Secrets: SecretsConfig{
			Backend: "auto",
		},
		Chain: ChainConfig{
			Timeout:      30 * time.Second,
			BlockWait:    2 * time.Minute,
			PollInterval: 5 * time.Second,
			RateLimit:    10,
		},
		UI: UIConfig{
			ConfirmationTimeout: 0,
		},
		Networks: defaultNetworks(),
	}
}

func defaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		string(types.Mainnet): {ChainID: 1, RPCURLs: []string{"https://cloudflare-eth.com"}},
		string(types.Kovan):   {ChainID: 42},
		string(types.Evan):    {ChainID: 49262},
		string(types.Goerli):  {ChainID: 5},
		string(types.IPFS):    {ChainID: 2000},
		string(types.EWC):     {ChainID: 246, RPCURLs: []string{"https://rpc.energyweb.org"}},
	}
}

// Network returns the settings for n, falling back to the built-in defaults
func (c *Config) Network(n types.Network) NetworkConfig {
	if nc, ok := c.Networks[string(n)]; ok {
		return nc
	}
	return defaultNetworks()[string(n)]
}

// Load reads settings from settingsFile, or from the home directory when it
// is empty. A missing default file yields defaults; a missing explicit
// file is ErrConfigNotFound. Environment variables override both.
func Load(settingsFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	resolved := settingsFile
	if resolved == "" {
		resolved = filepath.Join(GetHomeDir(), SettingsFileName)
	}

	readFile := true
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		if settingsFile != "" {
			return nil, ErrConfigNotFound
		}
		readFile = false
	}

	v.SetEnvPrefix("IN3CLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("logging.level", "IN3CLI_LOG_LEVEL")
	_ = v.BindEnv("logging.json", "IN3CLI_LOG_JSON")
	_ = v.BindEnv("secrets.backend", "IN3CLI_SECRETS_BACKEND")
	_ = v.BindEnv("secrets.passphrase", "IN3CLI_SECRETS_PASSPHRASE")
	_ = v.BindEnv("ui.assume_yes", "IN3CLI_ASSUME_YES")

	if readFile {
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			var vfnfError viper.ConfigFileNotFoundError
			if errors.As(err, &vfnfError) {
				return nil, ErrConfigNotFound
			}
			return nil, fmt.Errorf("failed to read config file content: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Logging.AuditFile == "" {
		config.Logging.AuditFile = filepath.Join(GetHomeDir(), "audit.log")
	}

	return config, nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.json", c.Logging.JSON)
	v.SetDefault("logging.audit_file", c.Logging.AuditFile)
	v.SetDefault("secrets.backend", c.Secrets.Backend)
	v.SetDefault("secrets.passphrase", c.Secrets.Passphrase)
	v.SetDefault("chain.timeout", c.Chain.Timeout)
	v.SetDefault("chain.block_wait", c.Chain.BlockWait)
	v.SetDefault("chain.poll_interval", c.Chain.PollInterval)
	v.SetDefault("chain.rate_limit", c.Chain.RateLimit)
	v.SetDefault("ui.assume_yes", c.UI.AssumeYes)
	v.SetDefault("ui.confirmation_timeout", c.UI.ConfirmationTimeout)
	for name, nc := range c.Networks {
		v.SetDefault("networks."+name+".chain_id", nc.ChainID)
		v.SetDefault("networks."+name+".rpc_urls", nc.RPCURLs)
	}
}

// Save saves configuration to file. The passphrase is never written.
func (c *Config) Save(settingsFile string) error {
	if settingsFile == "" {
		settingsFile = filepath.Join(GetHomeDir(), SettingsFileName)
	}

	if err := os.MkdirAll(filepath.Dir(settingsFile), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(settingsFile)
	v.SetConfigType("yaml")

	v.Set("logging.level", c.Logging.Level)
	v.Set("logging.json", c.Logging.JSON)
	v.Set("logging.audit_file", c.Logging.AuditFile)
	v.Set("secrets.backend", c.Secrets.Backend)
	v.Set("chain.timeout", c.Chain.Timeout.String())
	v.Set("chain.block_wait", c.Chain.BlockWait.String())
	v.Set("chain.poll_interval", c.Chain.PollInterval.String())
	v.Set("chain.rate_limit", c.Chain.RateLimit)
	v.Set("ui.assume_yes", c.UI.AssumeYes)
	v.Set("ui.confirmation_timeout", c.UI.ConfirmationTimeout.String())
	for name, nc := range c.Networks {
		v.Set("networks."+name+".chain_id", nc.ChainID)
		v.Set("networks."+name+".rpc_urls", nc.RPCURLs)
	}

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return os.Chmod(settingsFile, 0600)
}

// GetHomeDir returns the directory holding profiles, secrets and state
func GetHomeDir() string {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".in3cli")
	}

	return filepath.Join(homeDir, ".in3cli")
}

// EnsureHomeDir ensures the home directory exists
func EnsureHomeDir() error {
	return os.MkdirAll(GetHomeDir(), 0700)
}

// ProfilesPath returns the profile file path
func ProfilesPath() string {
	return filepath.Join(GetHomeDir(), ProfilesFileName)
}

// CursorsPath returns the cursor database directory
func CursorsPath() string {
	return filepath.Join(GetHomeDir(), "cursors")
}
