package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/pkg/validator"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rawLogRepository struct {
	pool *pgxpool.Pool
}

// NewRawLogRepository wires a repository backed by pgxpool.
func NewRawLogRepository(pool *pgxpool.Pool) RawLogRepository {
	return &rawLogRepository{pool: pool}
}

// FetchSince reads raw rows in receive-timestamp ascending order. The table
// identifier comes from the mapping registry, never from user input.
func (r *rawLogRepository) FetchSince(ctx context.Context, sourceTableID, table string, since time.Time, maxRows int) ([]domain.RawLogRecord, int, error) {
	if maxRows <= 0 {
		maxRows = 1000
	}

	sql := fmt.Sprintf(
		`SELECT insert_id, receive_timestamp, payload
		 FROM %s
		 WHERE receive_timestamp > $1
		 ORDER BY receive_timestamp ASC
		 LIMIT $2`,
		table,
	)

	rows, err := r.pool.Query(ctx, sql, since, maxRows)
	if err != nil {
		return nil, 0, &domain.TransientUpstreamError{SourceTableID: sourceTableID, Err: err}
	}
	defer rows.Close()

	records := []domain.RawLogRecord{}
	skipped := 0
	for rows.Next() {
		var (
			insertID  pgtype.Text
			receiveTS pgtype.Timestamptz
			payload   map[string]any
		)
		if scanErr := rows.Scan(&insertID, &receiveTS, &payload); scanErr != nil {
			// One unscannable row never aborts the batch.
			skipped++
			continue
		}

		rec := domain.RawLogRecord{
			SourceTableID:    sourceTableID,
			InsertID:         insertID.String,
			ReceiveTimestamp: receiveTS.Time,
			Payload:          payload,
		}
		if err := validator.ValidateRaw(rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, skipped, &domain.TransientUpstreamError{SourceTableID: sourceTableID, Err: rowsErr}
	}

	return records, skipped, nil
}
