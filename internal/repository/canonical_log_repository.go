package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/loglake/loglake/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// canonicalColumns is the full column list of the canonical store, in insert
// and scan order. The set is additive-only: new raw fields never change it.
const canonicalColumns = `log_id, event_date, insert_id, source_table_id,
	event_timestamp, ingest_timestamp, severity, severity_level, service_name,
	message, http_method, http_path, http_status, http_latency_ms, trace_id,
	span_id, error_type, error_message, is_error, is_audit, is_request,
	etl_status, etl_pipeline_version, etl_batch_id, record_version,
	universal_envelope`

type canonicalLogRepository struct {
	pool *pgxpool.Pool
}

// NewCanonicalLogRepository wires a repository backed by pgxpool.
func NewCanonicalLogRepository(pool *pgxpool.Pool) CanonicalLogRepository {
	return &canonicalLogRepository{pool: pool}
}

// InsertBatch upserts records keyed by (log_id, event_date). Redelivering an
// already committed id is a counted no-op, which is what makes re-running a
// window safe.
func (r *canonicalLogRepository) InsertBatch(ctx context.Context, records []domain.NormalizedLogRecord, batchID uuid.UUID) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	insertSQL := fmt.Sprintf(
		`INSERT INTO canonical_logs (%s)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		 ON CONFLICT (log_id, event_date) DO NOTHING`,
		canonicalColumns,
	)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertSQL,
			rec.LogID,
			rec.EventDate,
			rec.InsertID,
			rec.SourceTableID,
			rec.EventTimestamp,
			rec.Envelope.IngestTS,
			rec.Severity,
			rec.SeverityLevel,
			rec.ServiceName,
			rec.Message,
			nullIfEmpty(rec.HTTPMethod),
			nullIfEmpty(rec.HTTPPath),
			nullIfZero(rec.HTTPStatus),
			nullIfZeroFloat(rec.HTTPLatencyMS),
			nullIfEmpty(rec.TraceID),
			nullIfEmpty(rec.SpanID),
			nullIfEmpty(rec.ErrorType),
			nullIfEmpty(rec.ErrorMessage),
			rec.IsError,
			rec.IsAudit,
			rec.IsRequest,
			rec.ETLStatus,
			rec.ETLPipelineVersion,
			batchID,
			rec.Envelope.Versioning.RecordVersion,
			rec.Envelope,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	loaded, conflicts := 0, 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return loaded, conflicts, fmt.Errorf("failed to insert canonical batch: %w", err)
		}
		if tag.RowsAffected() == 1 {
			loaded++
		} else {
			conflicts++
		}
	}
	return loaded, conflicts, nil
}

// EnsurePartitions creates any missing daily partitions for the event dates
// in records, so late-arriving data still lands in its own time partition.
func (r *canonicalLogRepository) EnsurePartitions(ctx context.Context, records []domain.NormalizedLogRecord) error {
	dates := map[time.Time]struct{}{}
	for _, rec := range records {
		dates[rec.EventDate] = struct{}{}
	}

	for date := range dates {
		name := PartitionName(date)
		sql := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s PARTITION OF canonical_logs
			 FOR VALUES FROM ('%s') TO ('%s')`,
			name,
			date.Format("2006-01-02"),
			date.AddDate(0, 0, 1).Format("2006-01-02"),
		)
		if _, err := r.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to ensure partition %s: %w", name, err)
		}
	}
	return nil
}

// PartitionName returns the canonical partition identifier for a date.
func PartitionName(date time.Time) string {
	return "canonical_logs_p" + date.UTC().Format("20060102")
}

func (r *canonicalLogRepository) Select(ctx context.Context, sql string, args []any) ([]domain.NormalizedLogRecord, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical logs: %w", err)
	}
	defer rows.Close()

	records := []domain.NormalizedLogRecord{}
	for rows.Next() {
		rec, scanErr := scanCanonicalRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate canonical logs: %w", rowsErr)
	}
	return records, nil
}

func scanCanonicalRow(rows pgx.Rows) (domain.NormalizedLogRecord, error) {
	var (
		rec         domain.NormalizedLogRecord
		ingestTS    time.Time
		httpMethod  pgtype.Text
		httpPath    pgtype.Text
		httpStatus  pgtype.Int4
		httpLatency pgtype.Float8
		traceID     pgtype.Text
		spanID      pgtype.Text
		errorType   pgtype.Text
		errorMsg    pgtype.Text
		batchID     pgtype.UUID
		recVersion  int
	)
	if err := rows.Scan(
		&rec.LogID,
		&rec.EventDate,
		&rec.InsertID,
		&rec.SourceTableID,
		&rec.EventTimestamp,
		&ingestTS,
		&rec.Severity,
		&rec.SeverityLevel,
		&rec.ServiceName,
		&rec.Message,
		&httpMethod,
		&httpPath,
		&httpStatus,
		&httpLatency,
		&traceID,
		&spanID,
		&errorType,
		&errorMsg,
		&rec.IsError,
		&rec.IsAudit,
		&rec.IsRequest,
		&rec.ETLStatus,
		&rec.ETLPipelineVersion,
		&batchID,
		&recVersion,
		&rec.Envelope,
	); err != nil {
		return rec, fmt.Errorf("failed to scan canonical log: %w", err)
	}

	rec.HTTPMethod = httpMethod.String
	rec.HTTPPath = httpPath.String
	rec.HTTPStatus = int(httpStatus.Int32)
	rec.HTTPLatencyMS = httpLatency.Float64
	rec.TraceID = traceID.String
	rec.SpanID = spanID.String
	rec.ErrorType = errorType.String
	rec.ErrorMessage = errorMsg.String
	if batchID.Valid {
		rec.ETLBatchID = uuid.UUID(batchID.Bytes)
	}
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullIfZeroFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
