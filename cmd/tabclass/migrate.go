package main

import (
	"errors"
	"log/slog"

	"github.com/JonMunkholm/tabclass/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply run-history migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Database.Enabled() {
				return errors.New("DATABASE_URL is not set")
			}

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(ctx, pool); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}
