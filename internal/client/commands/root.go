package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mazurov/tc-credentials/internal/client/errors"
	"github.com/mazurov/tc-credentials/internal/client/output"
	"github.com/mazurov/tc-credentials/internal/config"
	"github.com/mazurov/tc-credentials/internal/credstore"
	"github.com/mazurov/tc-credentials/internal/logging"
	"github.com/mazurov/tc-credentials/internal/sys"
)

var (
	// Global flags
	flagConfig  string
	flagBackend string
	flagOutput  string
	flagJSON    bool
	flagVerbose bool
	flagTimeout time.Duration
	flagYes     bool
)

// managerFactory builds the credential manager for a loaded configuration.
// Tests replace it to run commands against in-memory stores.
var managerFactory = func(cfg *config.Config, logger *slog.Logger) (*credstore.Manager, error) {
	return credstore.NewManagerForPlatform(credstore.CurrentPlatform(), cfg.StoreOptions(), credstore.Deps{
		Runner: sys.NewExecRunner(cfg.Timeout),
		FS:     sys.NewOSFileSystem(),
		Logger: logger,
	})
}

// newRootCmd builds the command tree. Flag variables are reset to their defaults.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tc-credentials",
		Short: "TeamCity credential store",
		Long: `tc-credentials stores TeamCity server credentials in the platform secret store.

Credentials are stored:
- Windows: Credential Manager (through the creds.exe helper)
- macOS: login Keychain (through /usr/bin/security)
- Linux: ~/.teamcity-credentials/secrets.json with 0600 permissions

Only one set of credentials is stored at a time. Storing new credentials
replaces the existing ones.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Secret store backend: auto, wincred, keychain, file, or keyring (or use TC_CREDENTIALS_BACKEND env var)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", output.FormatText, "Output format: text, json, or yaml")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format (same as --output json)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Timeout for each secret store helper invocation")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation prompts")

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newSetCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newBackendCmd())

	return rootCmd
}

// Execute executes the root command
func Execute() error {
	return execute(newRootCmd())
}

// execute runs the command tree. In JSON mode failures are also reported
// as a JSON envelope on stdout.
func execute(rootCmd *cobra.Command) error {
	err := rootCmd.Execute()
	if err != nil {
		if format, formatErr := outputFormat(); formatErr == nil && format == output.FormatJSON {
			_ = output.OutputJSON(rootCmd.OutOrStdout(), nil, err)
		}
	}
	return err
}

// outputFormat returns the requested output format
func outputFormat() (string, error) {
	if flagJSON {
		return output.FormatJSON, nil
	}
	switch flagOutput {
	case output.FormatText, output.FormatJSON, output.FormatYAML:
		return flagOutput, nil
	default:
		return "", errors.Usagef("invalid output format '%s'. Expected text, json, or yaml", flagOutput)
	}
}

// loadConfig loads configuration with precedence flags > env > config file > defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()

	if flagConfig != "" {
		v.SetConfigFile(flagConfig)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindFlag(v, cmd, "backend", "backend"); err != nil {
		return nil, err
	}
	if err := bindFlag(v, cmd, "timeout", "timeout"); err != nil {
		return nil, err
	}

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	if flagVerbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Usagef("invalid configuration: %v", err)
	}

	return cfg, nil
}

// bindFlag binds a flag to a viper key only when it was set explicitly
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) error {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	return v.BindPFlag(key, flag)
}

// loadManager loads configuration and builds the credential manager
func loadManager(cmd *cobra.Command) (*credstore.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())

	manager, err := managerFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}
	return manager, nil
}

// commandContext returns the command's context, falling back to Background
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// render writes data in the requested format. text is called for text output.
func render(w io.Writer, format string, data interface{}, text func(io.Writer) error) error {
	switch format {
	case output.FormatJSON:
		return output.OutputJSON(w, data, nil)
	case output.FormatYAML:
		return output.OutputYAML(w, data)
	default:
		return text(w)
	}
}
