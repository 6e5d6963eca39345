package repository

import (
	"context"
	"fmt"

	"github.com/loglake/loglake/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type batchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository wires a repository backed by pgxpool.
func NewBatchRepository(pool *pgxpool.Pool) BatchRepository {
	return &batchRepository{pool: pool}
}

func (r *batchRepository) Create(ctx context.Context, batch domain.Batch) error {
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO ingest_batches
		   (id, source_table_id, window_start, window_end, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		batch.ID,
		batch.SourceTableID,
		batch.WindowStart,
		batch.WindowEnd,
		batch.Status,
		batch.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch %s: %w", batch.ID, err)
	}
	return nil
}

func (r *batchRepository) Seal(ctx context.Context, batch domain.Batch) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE ingest_batches
		 SET status = $2,
		     rows_extracted = $3,
		     rows_loaded = $4,
		     rows_skipped = $5,
		     rows_degraded = $6,
		     rows_conflict = $7,
		     error_count = $8,
		     window_end = $9,
		     completed_at = now()
		 WHERE id = $1 AND status = 'running'`,
		batch.ID,
		batch.Status,
		batch.RowsExtracted,
		batch.RowsLoaded,
		batch.RowsSkipped,
		batch.RowsDegraded,
		batch.RowsConflict,
		batch.ErrorCount,
		batch.WindowEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to seal batch %s: %w", batch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s is not running, refusing to seal", batch.ID)
	}
	return nil
}

func (r *batchRepository) List(ctx context.Context, sourceTableID string, limit int) ([]domain.Batch, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, source_table_id, window_start, window_end,
		        rows_extracted, rows_loaded, rows_skipped, rows_degraded,
		        rows_conflict, error_count, status, started_at, completed_at
		 FROM ingest_batches
		 WHERE ($1 = '' OR source_table_id = $1)
		 ORDER BY started_at DESC
		 LIMIT $2`,
		sourceTableID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := []domain.Batch{}
	for rows.Next() {
		var (
			batch       domain.Batch
			completedAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&batch.ID,
			&batch.SourceTableID,
			&batch.WindowStart,
			&batch.WindowEnd,
			&batch.RowsExtracted,
			&batch.RowsLoaded,
			&batch.RowsSkipped,
			&batch.RowsDegraded,
			&batch.RowsConflict,
			&batch.ErrorCount,
			&batch.Status,
			&batch.StartedAt,
			&completedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", scanErr)
		}
		if completedAt.Valid {
			t := completedAt.Time
			batch.CompletedAt = &t
		}
		batches = append(batches, batch)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", rowsErr)
	}
	return batches, nil
}
