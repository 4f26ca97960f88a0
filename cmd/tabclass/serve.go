package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/tabclass/internal/job"
	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/JonMunkholm/tabclass/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply run-history migrations before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg := a.cfg

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"history", cfg.Database.Enabled(),
		"extract_max_concurrent", cfg.Extract.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	reg, err := job.NewRegistry()
	if err != nil {
		return err
	}
	if cfg.Extract.JobsFile != "" {
		jobs, err := job.Load(cfg.Extract.JobsFile)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if err := reg.Register(j); err != nil {
				return err
			}
		}
		slog.Info("jobs registered", "count", reg.Len(), "file", cfg.Extract.JobsFile)
	}

	runner, st, cleanup, err := a.newRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	deps := web.Deps{Registry: reg, Runner: runner}
	if st != nil {
		if migrate {
			if err := store.Migrate(ctx, st.Pool()); err != nil {
				return err
			}
		}
		deps.Runs = st
	}

	server := web.NewServer(cfg, deps)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running extractions finish before the listener closes
		if status := runner.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := runner.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}
