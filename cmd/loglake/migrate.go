package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/loglake/loglake/internal/db"
	"github.com/loglake/loglake/internal/normalizer"
	"github.com/loglake/loglake/internal/views"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and regenerate derived views",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := db.RunMigrations(cfg.Database, migrationsPath); err != nil {
				return err
			}

			ctx := context.Background()
			conn, err := db.NewConnection(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := views.NewManager(conn.Pool, normalizer.DefaultRegistry()).EnsureViews(ctx); err != nil {
				return err
			}

			cmd.Println("migrations applied")
			return nil
		},
	}
}
