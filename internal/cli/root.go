// Package cli implements the pantry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/pantry"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app carries state shared by the subcommands of one invocation.
type app struct {
	flags    rootFlags
	settings *settings
	logger   *slog.Logger
	stderr   io.Writer
}

// NewRootCmd creates the top-level "pantry" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:     "pantry",
		Short:   "A contention-tolerant item store backed by SQLite",
		Long:    "Pantry keeps item records in a SQLite database and serves them over HTTP.",
		Version: pantry.Version,
		// Errors are printed once by Run.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: per-user data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError(err)
	})

	root.AddCommand(newVersionCmd(a))
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newItemCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

// load resolves directories, reads configuration and builds the logger.
func (a *app) load() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError(fmt.Errorf("resolving config dir: %w", err))
	}

	s, err := loadSettings(configDir)
	if err != nil {
		return systemError(err)
	}
	if a.flags.logLevel != "" {
		s.Log.Level = a.flags.logLevel
	}

	s.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, s.DataDir)
	if err != nil {
		return systemError(fmt.Errorf("resolving data dir: %w", err))
	}

	logger, err := newLogger(a.stderr, s.Log)
	if err != nil {
		return userError(err)
	}

	a.settings = s
	a.logger = logger
	return nil
}

// openBackend attaches a SQLite backend per the loaded settings. The caller
// must Detach it.
func (a *app) openBackend() (*sqlite.Backend, error) {
	cfg := a.settings.backendConfig()
	if err := cfg.Validate(); err != nil {
		return nil, userError(fmt.Errorf("invalid configuration: %w", err))
	}

	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := backend.Attach(cfg); err != nil {
		return nil, systemError(fmt.Errorf("attaching backend: %w", err))
	}
	return backend, nil
}

// cliError tags an error with the exit code it should produce.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func userError(err error) error   { return &cliError{code: exitUserError, err: err} }
func systemError(err error) error { return &cliError{code: exitSysError, err: err} }

// storeError classifies an error returned by the item store.
func storeError(err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidDate):
		return userError(err)
	default:
		return systemError(err)
	}
}

// exitCode maps err to a process exit code. Errors not tagged by the
// commands come from cobra's own argument handling.
func exitCode(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}
