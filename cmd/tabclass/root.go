package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/JonMunkholm/tabclass/internal/config"
	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/logging"
	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg      *config.Config
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "tabclass",
		Short: "Extract and classify rows from CSV, XLSX and SQL sources",
		Long: `Extract selected columns from a tabular source and group the rows into
nested classifications keyed by column values.

Commands:
  extract  Run a one-off extraction over a file or SQL query
  jobs     List or run jobs defined in a YAML file
  serve    Start the HTTP service
  migrate  Apply run-history migrations

Configuration is read from the environment, after loading .env when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(
		newExtractCmd(a),
		newJobsCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
	)
	return cmd
}

func (a *app) setup() error {
	// Overload lets .env win over the inherited environment
	if err := godotenv.Overload(a.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		slog.Debug("no .env file found, using environment variables", "path", a.envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	a.cfg = cfg
	return nil
}

// newRunner builds a runner from the extract settings. When a database is
// configured the returned cleanup closes its pool.
func (a *app) newRunner(ctx context.Context) (*job.Runner, *store.Store, func(), error) {
	limiter := job.NewLimiter(a.cfg.Extract.MaxConcurrent, a.cfg.Extract.MaxWaitTime)

	if !a.cfg.Database.Enabled() {
		return job.NewRunner(limiter, a.cfg.Extract.Timeout, nil), nil, func() {}, nil
	}

	pool, err := store.Connect(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	st := store.New(pool)
	return job.NewRunner(limiter, a.cfg.Extract.Timeout, st), st, pool.Close, nil
}
