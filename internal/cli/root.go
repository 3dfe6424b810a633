package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdb/internal/config"
	"github.com/roach88/eventdb/internal/rlimit"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	NoFiles    uint64

	// Config is resolved from the config file and flags before any
	// subcommand runs.
	Config config.Config

	// Logger writes diagnostics to the command's stderr.
	Logger *slog.Logger

	// Sys overrides the rlimit syscalls (for testing).
	// If nil, defaults to rlimit.System().
	Sys rlimit.Syscaller
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eventdb CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventdb",
		Short: "eventdb - on-disk event store",
		Long: `An on-disk event store with an authenticated index of its events.

Every command first checks that the database format matches this build and
that the file descriptor limit can be applied; incompatible databases abort
before any work is done.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().Uint64Var(&opts.NoFiles, "nofiles", 0, "open file descriptor limit to set at startup (overrides relay.nofiles)")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))

	return cmd
}

// resolve validates global flags, loads the config file, applies flag
// overrides and sets up logging.
func (opts *RootOptions) resolve(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = opts.Database
	}
	if cmd.Flags().Changed("nofiles") {
		cfg.Relay.NoFiles = opts.NoFiles
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	opts.Config = cfg

	opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
	return nil
}

// newLogger returns a text logger at Debug level when verbose, else Info.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported on the command's stderr in the selected format.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		format := opts.Format
		if !slices.Contains(ValidFormats, format) {
			format = "text"
		}
		f := &OutputFormatter{Format: format, Writer: stderr}
		_ = f.Error(err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
