package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/aql/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Env     string // overrides AQL_ENV when set

	// Settings and Logger are filled in before a subcommand runs. Commands
	// built directly (tests) fall back to defaults.
	Settings *config.Config
	Logger   *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the aql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aql",
		Short: "aql - query language compiler for SQLite",
		Long: `Compile JSON-shaped AQL queries into parameterized SQLite SQL.

Schemas are CUE packages or YAML/JSON files. Queries are YAML or JSON
documents. Settings come from AQL_* environment variables (and .env);
flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if !slices.Contains(ValidFormats, opts.Format) {
				err = NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			} else {
				err = opts.load(cmd.ErrOrStderr())
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", "", "environment (development|production), overrides AQL_ENV")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// load reads settings from the environment, applies flag overrides and
// installs the stderr logger.
func (o *RootOptions) load(stderr io.Writer) error {
	settings, err := config.LoadFromEnv()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Env != "" {
		settings.Env = o.Env
		if err := settings.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}
	o.Settings = settings

	level := settings.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.Logger)

	for _, w := range settings.Warnings {
		o.Logger.Warn(w)
	}
	return nil
}

func (o *RootOptions) settings() *config.Config {
	if o.Settings != nil {
		return o.Settings
	}
	return &config.Config{
		Env:        config.EnvDevelopment,
		LogLevel:   "info",
		ListenAddr: ":8080",
		DBPath:     ":memory:",
		CacheSize:  256,
		RateBurst:  10,
	}
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
