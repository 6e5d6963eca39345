package repository

import (
	"context"
	"time"

	"github.com/loglake/loglake/internal/domain"

	"github.com/google/uuid"
)

// WatermarkRepository persists the per-source-table ingestion cursor.
type WatermarkRepository interface {
	Get(ctx context.Context, sourceTableID string) (domain.Watermark, error)
	// Advance moves the cursor with a compare-and-swap against the batch id
	// that last advanced it. It returns false when another run advanced the
	// cursor concurrently.
	Advance(ctx context.Context, sourceTableID string, position time.Time, batchID uuid.UUID, expectedLastBatchID *uuid.UUID) (bool, error)
}

// BatchRepository tracks batch lifecycle rows.
type BatchRepository interface {
	Create(ctx context.Context, batch domain.Batch) error
	Seal(ctx context.Context, batch domain.Batch) error
	List(ctx context.Context, sourceTableID string, limit int) ([]domain.Batch, error)
}

// RawLogRepository reads unprocessed rows from one physical source table.
type RawLogRepository interface {
	// FetchSince returns up to maxRows records with receive_timestamp strictly
	// after since, in receive-timestamp ascending order, plus the count of
	// malformed rows it skipped.
	FetchSince(ctx context.Context, sourceTableID, table string, since time.Time, maxRows int) ([]domain.RawLogRecord, int, error)
}

// CanonicalLogRepository writes and reads the partitioned canonical store.
type CanonicalLogRepository interface {
	// InsertBatch upserts records idempotently by log id; redelivered ids are
	// counted as conflicts, not duplicated.
	InsertBatch(ctx context.Context, records []domain.NormalizedLogRecord, batchID uuid.UUID) (loaded, conflicts int, err error)
	// EnsurePartitions creates any missing daily partitions covering the
	// event dates present in records.
	EnsurePartitions(ctx context.Context, records []domain.NormalizedLogRecord) error
	// Select runs a parameterized query produced by the query builder and
	// scans canonical records.
	Select(ctx context.Context, sql string, args []any) ([]domain.NormalizedLogRecord, error)
}

// ScanEstimator prices a query window before execution.
type ScanEstimator interface {
	// EstimateScanBytes returns the on-disk size of every canonical partition
	// intersecting [from, to].
	EstimateScanBytes(ctx context.Context, from, to time.Time) (int64, error)
}
