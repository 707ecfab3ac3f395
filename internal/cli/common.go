package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/lunchdesk/internal/config"
	"github.com/roach88/lunchdesk/internal/store"
)

// loadConfig reads the config file and environment, then applies the
// --db flag when the command has one and it was set.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.Config, opts.EnvFile)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
		cfg.Database = f.Value.String()
	}
	return cfg, nil
}

// newLogger builds the text logger for a command. --verbose forces debug.
func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore opens the configured database.
func openStore(cfg config.Config, logger *slog.Logger) (*store.Store, func(), error) {
	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}
	return st, closeFn, nil
}

// addDBFlag registers the --db override shared by database commands.
func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "path to SQLite database (overrides config)")
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
