package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loglake/loglake/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type watermarkRepository struct {
	pool *pgxpool.Pool
}

// NewWatermarkRepository wires a repository backed by pgxpool.
func NewWatermarkRepository(pool *pgxpool.Pool) WatermarkRepository {
	return &watermarkRepository{pool: pool}
}

func (r *watermarkRepository) Get(ctx context.Context, sourceTableID string) (domain.Watermark, error) {
	wm := domain.Watermark{SourceTableID: sourceTableID}

	var (
		position    pgtype.Timestamptz
		lastBatchID pgtype.UUID
		updatedAt   pgtype.Timestamptz
	)
	err := r.pool.QueryRow(
		ctx,
		`SELECT position, last_batch_id, updated_at
		 FROM watermarks
		 WHERE source_table_id = $1`,
		sourceTableID,
	).Scan(&position, &lastBatchID, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// A source never ingested starts from the zero position.
		return wm, nil
	}
	if err != nil {
		return wm, fmt.Errorf("failed to get watermark for %s: %w", sourceTableID, err)
	}

	if position.Valid {
		wm.Position = position.Time
	}
	if lastBatchID.Valid {
		id := uuid.UUID(lastBatchID.Bytes)
		wm.LastBatchID = &id
	}
	if updatedAt.Valid {
		wm.UpdatedAt = updatedAt.Time
	}
	return wm, nil
}

func (r *watermarkRepository) Advance(ctx context.Context, sourceTableID string, position time.Time, batchID uuid.UUID, expectedLastBatchID *uuid.UUID) (bool, error) {
	var expected any
	if expectedLastBatchID != nil {
		expected = *expectedLastBatchID
	}

	tag, err := r.pool.Exec(
		ctx,
		`INSERT INTO watermarks (source_table_id, position, last_batch_id, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (source_table_id) DO UPDATE
		 SET position = EXCLUDED.position,
		     last_batch_id = EXCLUDED.last_batch_id,
		     updated_at = now()
		 WHERE watermarks.last_batch_id IS NOT DISTINCT FROM $4`,
		sourceTableID,
		position,
		batchID,
		expected,
	)
	if err != nil {
		return false, fmt.Errorf("failed to advance watermark for %s: %w", sourceTableID, err)
	}
	return tag.RowsAffected() == 1, nil
}
