package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loglake/loglake/internal/config"
	"github.com/loglake/loglake/internal/db"
	"github.com/loglake/loglake/internal/extractor"
	"github.com/loglake/loglake/internal/handlers"
	"github.com/loglake/loglake/internal/loader"
	"github.com/loglake/loglake/internal/logging"
	"github.com/loglake/loglake/internal/monitoring"
	"github.com/loglake/loglake/internal/normalizer"
	"github.com/loglake/loglake/internal/pipeline"
	"github.com/loglake/loglake/internal/query"
	"github.com/loglake/loglake/internal/querybuilder"
	"github.com/loglake/loglake/internal/repository"
	"github.com/loglake/loglake/internal/scheduler"
	"github.com/loglake/loglake/internal/server"
	"github.com/loglake/loglake/internal/views"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the periodic ingestion scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg config.Config) error {
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.Database, migrationsPath); err != nil {
		return err
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	registry := normalizer.DefaultRegistry()

	if err := views.NewManager(conn.Pool, registry).EnsureViews(ctx); err != nil {
		return err
	}

	watermarks := repository.NewWatermarkRepository(conn.Pool)
	batches := repository.NewBatchRepository(conn.Pool)
	rawLogs := repository.NewRawLogRepository(conn.Pool)
	canonical := repository.NewCanonicalLogRepository(conn.Pool)
	estimator := repository.NewScanEstimator(conn.Pool)

	pipe := pipeline.New(
		extractor.New(rawLogs, registry,
			extractor.WithRetry(cfg.Ingest.RetryAttempts, cfg.Ingest.RetryBaseDelay),
			extractor.WithTimeout(cfg.Ingest.UpstreamTimeout),
		),
		normalizer.New(registry),
		loader.New(canonical),
		watermarks,
		batches,
		registry,
		cfg.Ingest.MaxRowsPerExtract,
		logger,
	)

	builder := querybuilder.New(
		querybuilder.WithMaxLookbackHours(cfg.Query.MaxLookbackHours),
		querybuilder.WithDefaultLimit(cfg.Query.DefaultLimit),
	)
	querySvc := query.New(builder, canonical, estimator, cfg.Query.MaxScannedBytes, cfg.Query.ViewTarget, logger)

	h := handlers.New(querySvc, pipe, monitoring.NewRepository(conn.Pool), batches, logger)
	srv := server.New(cfg.Server, h, logger)

	go scheduler.New(pipe, cfg.Ingest.Interval, logger).Run(ctx)

	return srv.Start(ctx)
}
