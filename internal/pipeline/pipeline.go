// Package pipeline orchestrates one extract, normalize, load run per source
// table and seals the outcome in the batch ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/extractor"
	"github.com/loglake/loglake/internal/loader"
	"github.com/loglake/loglake/internal/logging"
	"github.com/loglake/loglake/internal/metrics"
	"github.com/loglake/loglake/internal/normalizer"
	"github.com/loglake/loglake/internal/repository"
)

// Pipeline runs batches. A batch either seals as loaded with its watermark
// advanced, or seals as failed with the watermark untouched; there is no
// half-advanced state.
type Pipeline struct {
	extractor  *extractor.Extractor
	normalizer *normalizer.Normalizer
	loader     *loader.Loader
	watermarks repository.WatermarkRepository
	batches    repository.BatchRepository
	registry   *normalizer.Registry
	maxRows    int
	logger     *slog.Logger
}

// New wires a pipeline over its stages and repositories.
func New(
	ext *extractor.Extractor,
	norm *normalizer.Normalizer,
	ld *loader.Loader,
	watermarks repository.WatermarkRepository,
	batches repository.BatchRepository,
	registry *normalizer.Registry,
	maxRows int,
	logger *slog.Logger,
) *Pipeline {
	if maxRows <= 0 {
		maxRows = 5000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor:  ext,
		normalizer: norm,
		loader:     ld,
		watermarks: watermarks,
		batches:    batches,
		registry:   registry,
		maxRows:    maxRows,
		logger:     logger,
	}
}

// Run executes one batch for a source table. Failures in any stage seal the
// batch as failed and leave the watermark where it was, so the next run
// re-reads the same raw rows and the idempotent loader absorbs any rows that
// already committed.
func (p *Pipeline) Run(ctx context.Context, sourceTableID string) (domain.Batch, error) {
	if err := p.loader.Acquire(sourceTableID); err != nil {
		return domain.Batch{}, err
	}
	defer p.loader.Release(sourceTableID)

	watermark, err := p.watermarks.Get(ctx, sourceTableID)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("failed to read watermark for %s: %w", sourceTableID, err)
	}

	batch := domain.NewBatch(sourceTableID, watermark.Position, time.Now().UTC())
	if err := p.batches.Create(ctx, batch); err != nil {
		return domain.Batch{}, fmt.Errorf("failed to open batch for %s: %w", sourceTableID, err)
	}

	log := p.logger.With(logging.Source(sourceTableID), logging.Batch(batch.ID.String()))

	extracted, err := p.extractor.Extract(ctx, sourceTableID, watermark.Position, p.maxRows)
	if err != nil {
		return p.fail(ctx, batch, "extract", err)
	}
	batch.RowsExtracted = len(extracted.Records)
	batch.RowsSkipped = extracted.Skipped
	metrics.RecordsExtractedTotal.WithLabelValues(sourceTableID).Add(float64(len(extracted.Records)))
	metrics.RecordsSkippedTotal.WithLabelValues(sourceTableID).Add(float64(extracted.Skipped))

	if len(extracted.Records) == 0 {
		batch.Status = domain.BatchStatusLoaded
		if err := p.seal(ctx, batch); err != nil {
			return batch, err
		}
		log.Debug("batch empty, nothing to load")
		return batch, nil
	}

	records := make([]domain.NormalizedLogRecord, 0, len(extracted.Records))
	for _, raw := range extracted.Records {
		start := time.Now()
		normalized := p.normalizer.Normalize(raw)
		metrics.NormalizationDuration.Observe(time.Since(start).Seconds())
		metrics.RecordsNormalizedTotal.WithLabelValues(sourceTableID, normalized.ETLStatus).Inc()
		if normalized.ETLStatus == domain.ETLStatusDegraded {
			batch.RowsDegraded++
		}
		records = append(records, normalized)
	}

	committed, err := p.loader.Load(ctx, sourceTableID, records, batch.ID)
	batch.RowsLoaded = committed.Loaded
	batch.RowsConflict = committed.Conflicts
	if err != nil {
		return p.fail(ctx, batch, "load", err)
	}

	// The new cursor is the newest raw receive timestamp in this batch.
	position := watermark.Position
	for _, raw := range extracted.Records {
		if raw.ReceiveTimestamp.After(position) {
			position = raw.ReceiveTimestamp
		}
	}

	batch.Status = domain.BatchStatusLoaded
	if err := p.seal(ctx, batch); err != nil {
		return batch, err
	}
	metrics.BatchesTotal.WithLabelValues(sourceTableID, string(domain.BatchStatusLoaded)).Inc()

	// The cursor moves only after the batch has sealed loaded. If advancing
	// fails past this point the sealed rows are already durable, so the next
	// run re-reads the window and the loader absorbs them as conflicts.
	advanced, err := p.watermarks.Advance(ctx, sourceTableID, position, batch.ID, watermark.LastBatchID)
	if err != nil {
		return batch, &domain.BatchFailure{
			BatchID:       batch.ID,
			SourceTableID: sourceTableID,
			Stage:         "watermark",
			Err:           err,
		}
	}
	if !advanced {
		// Lost the compare-and-swap to a concurrent run. The rows this batch
		// committed are already durable and idempotent, so the only casualty
		// is the cursor, which the winner owns.
		log.Warn("watermark advanced concurrently, leaving cursor to the winning batch")
	}

	log.Info("batch loaded",
		slog.Int("extracted", batch.RowsExtracted),
		slog.Int("loaded", batch.RowsLoaded),
		slog.Int("skipped", batch.RowsSkipped),
		slog.Int("degraded", batch.RowsDegraded),
		slog.Int("conflicts", batch.RowsConflict),
	)
	return batch, nil
}

// RunAll runs one batch per registered source table, in registry order. A
// failing source does not stop the others; the errors are joined.
func (p *Pipeline) RunAll(ctx context.Context) ([]domain.Batch, error) {
	var (
		results []domain.Batch
		errs    []error
	)
	for _, sourceTableID := range p.registry.SourceTableIDs() {
		batch, err := p.Run(ctx, sourceTableID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, batch)
	}
	return results, errors.Join(errs...)
}

func (p *Pipeline) fail(ctx context.Context, batch domain.Batch, stage string, cause error) (domain.Batch, error) {
	batch.Status = domain.BatchStatusFailed
	batch.ErrorCount++
	if sealErr := p.seal(ctx, batch); sealErr != nil {
		p.logger.Error("failed to seal failed batch",
			logging.Source(batch.SourceTableID),
			logging.Batch(batch.ID.String()),
			slog.String("error", sealErr.Error()),
		)
	}
	metrics.BatchesTotal.WithLabelValues(batch.SourceTableID, string(domain.BatchStatusFailed)).Inc()
	return batch, &domain.BatchFailure{
		BatchID:       batch.ID,
		SourceTableID: batch.SourceTableID,
		Stage:         stage,
		Err:           cause,
	}
}

func (p *Pipeline) seal(ctx context.Context, batch domain.Batch) error {
	now := time.Now().UTC()
	batch.CompletedAt = &now
	if err := p.batches.Seal(ctx, batch); err != nil {
		return fmt.Errorf("failed to seal batch %s: %w", batch.ID, err)
	}
	return nil
}
