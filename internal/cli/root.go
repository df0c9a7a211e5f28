package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/hiscores/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Database string
	Driver   string
	DSN      string

	// Config is resolved in PersistentPreRunE from the environment with
	// flag overrides applied.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hiscores CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hiscores",
		Short: "hiscores - player statistics data access",
		Long: `Operate the hiscores data-access layer.

Writes go through the same entry point the service uses: derived values are
encoded before they are stored, results are decoded, and each committed
write triggers its registered side effects once.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return fail(formatter(opts, cmd), ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			configureLogging(cmd, opts)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides HISCORES_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver sqlite|postgres (overrides HISCORES_DB_DRIVER)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "postgres connection string (overrides HISCORES_POSTGRES_DSN)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewReadCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewSpecsCommand(opts))
	cmd.AddCommand(NewHooksCommand(opts))

	return cmd
}

// resolveConfig loads the environment and applies flag overrides.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = opts.Database
	}
	if flags.Changed("driver") {
		cfg.Driver = config.Driver(opts.Driver)
	}
	if flags.Changed("dsn") {
		cfg.PostgresDSN = opts.DSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogging installs the process logger on stderr. JSON output gets
// JSON logs so both streams stay machine-readable.
func configureLogging(cmd *cobra.Command, opts *RootOptions) {
	level, _ := config.ParseLevel(opts.Config.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), hopts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), hopts)
	}
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
