package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loglake/loglake/internal/config"
)

var (
	configPath     string
	migrationsPath string
)

func main() {
	root := &cobra.Command{
		Use:          "loglake",
		Short:        "Heterogeneous log ingestion and canonical query service",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")
	root.PersistentFlags().StringVar(&migrationsPath, "migrations", "./migrations", "directory containing schema migrations")

	root.AddCommand(newServeCmd(), newIngestCmd(), newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
