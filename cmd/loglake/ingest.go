package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loglake/loglake/internal/db"
	"github.com/loglake/loglake/internal/extractor"
	"github.com/loglake/loglake/internal/loader"
	"github.com/loglake/loglake/internal/logging"
	"github.com/loglake/loglake/internal/normalizer"
	"github.com/loglake/loglake/internal/pipeline"
	"github.com/loglake/loglake/internal/repository"
)

func newIngestCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
			logging.SetDefault(logger)

			ctx := context.Background()
			conn, err := db.NewConnection(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer conn.Close()

			registry := normalizer.DefaultRegistry()
			pipe := pipeline.New(
				extractor.New(repository.NewRawLogRepository(conn.Pool), registry,
					extractor.WithRetry(cfg.Ingest.RetryAttempts, cfg.Ingest.RetryBaseDelay),
					extractor.WithTimeout(cfg.Ingest.UpstreamTimeout),
				),
				normalizer.New(registry),
				loader.New(repository.NewCanonicalLogRepository(conn.Pool)),
				repository.NewWatermarkRepository(conn.Pool),
				repository.NewBatchRepository(conn.Pool),
				registry,
				cfg.Ingest.MaxRowsPerExtract,
				logger,
			)

			if source != "" {
				batch, err := pipe.Run(ctx, source)
				if err != nil {
					return err
				}
				cmd.Printf("batch %s: extracted=%d loaded=%d skipped=%d degraded=%d conflicts=%d\n",
					batch.ID, batch.RowsExtracted, batch.RowsLoaded, batch.RowsSkipped, batch.RowsDegraded, batch.RowsConflict)
				return nil
			}

			batches, err := pipe.RunAll(ctx)
			for _, batch := range batches {
				cmd.Printf("batch %s (%s): extracted=%d loaded=%d skipped=%d degraded=%d conflicts=%d\n",
					batch.ID, batch.SourceTableID, batch.RowsExtracted, batch.RowsLoaded,
					batch.RowsSkipped, batch.RowsDegraded, batch.RowsConflict)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "run a single source table instead of all")
	return cmd
}
