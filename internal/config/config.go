package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mazurov/tc-credentials/internal/credstore"
)

// EnvPrefix is the prefix of environment variables overriding configuration
const EnvPrefix = "TC_CREDENTIALS"

// Config holds all configuration for the credential broker
type Config struct {
	ServicePrefix string         `mapstructure:"service_prefix"`
	Backend       string         `mapstructure:"backend"` // auto | wincred | keychain | file | keyring
	Timeout       time.Duration  `mapstructure:"timeout"` // per helper invocation
	File          FileConfig     `mapstructure:"file"`
	WinCred       WinCredConfig  `mapstructure:"wincred"`
	Keychain      KeychainConfig `mapstructure:"keychain"`
	Logging       LoggingConfig  `mapstructure:"logging"`
}

// FileConfig holds file backend configuration
type FileConfig struct {
	Path string `mapstructure:"path"` // empty means ~/.teamcity-credentials/secrets.json
}

// WinCredConfig holds credential manager configuration
type WinCredConfig struct {
	Helper string `mapstructure:"helper"`
}

// KeychainConfig holds keychain configuration
type KeychainConfig struct {
	Security string `mapstructure:"security"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | text
}

// NewViper creates a new viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("service_prefix", credstore.DefaultServicePrefix)
	v.SetDefault("backend", credstore.BackendAuto)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("file.path", "")
	v.SetDefault("wincred.helper", credstore.DefaultWinCredHelper)
	v.SetDefault("keychain.security", credstore.DefaultSecurityPath)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	// Bind environment variables with TC_CREDENTIALS_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load loads configuration from defaults, environment variables and the
// optional config file. CLI flags are bound via viper in the CLI layer.
func Load(configFile string) (*Config, error) {
	v := NewViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a pre-configured viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ServicePrefix == "" {
		return fmt.Errorf("service_prefix cannot be empty")
	}
	if strings.ContainsAny(c.ServicePrefix, "*|") {
		return fmt.Errorf("service_prefix must not contain '*' or '|'")
	}

	validBackends := map[string]bool{
		credstore.BackendAuto:     true,
		credstore.BackendWinCred:  true,
		credstore.BackendKeychain: true,
		credstore.BackendFile:     true,
		credstore.BackendKeyring:  true,
	}
	if !validBackends[c.Backend] {
		return fmt.Errorf("backend must be auto, wincred, keychain, file, or keyring")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}

	// Validate logging format
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text")
	}

	return nil
}

// StoreOptions converts the configuration into backend selection options
func (c *Config) StoreOptions() credstore.Options {
	return credstore.Options{
		ServicePrefix: c.ServicePrefix,
		Backend:       c.Backend,
		FilePath:      c.File.Path,
		WinCredHelper: c.WinCred.Helper,
		SecurityPath:  c.Keychain.Security,
	}
}
