// Package monitoring exposes the validation views of the canonical store:
// schema coverage, null rates, and ingest latency.
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loglake/loglake/internal/domain"
)

// SchemaCoverage reports how completely one source table fills the canonical
// columns.
type SchemaCoverage struct {
	SourceTableID   string  `json:"source_table_id"`
	TotalRows       int64   `json:"total_rows"`
	DegradedRate    float64 `json:"degraded_rate"`
	NullServiceRate float64 `json:"null_service_rate"`
	NullMessageRate float64 `json:"null_message_rate"`
	NullTraceRate   float64 `json:"null_trace_rate"`
}

// IngestLatency is the distribution of ingest_ts - event_ts per source table.
type IngestLatency struct {
	SourceTableID string  `json:"source_table_id"`
	P50Seconds    float64 `json:"p50_seconds"`
	P95Seconds    float64 `json:"p95_seconds"`
	P99Seconds    float64 `json:"p99_seconds"`
	MaxSeconds    float64 `json:"max_seconds"`
}

// ServiceHourlyStat is one hour of one service from the aggregate view.
type ServiceHourlyStat struct {
	Hour         time.Time `json:"hour"`
	ServiceName  string    `json:"service_name"`
	Count        int64     `json:"count"`
	ErrorCount   int64     `json:"error_count"`
	LatencyP50MS float64   `json:"latency_p50_ms"`
	LatencyP95MS float64   `json:"latency_p95_ms"`
	LatencyP99MS float64   `json:"latency_p99_ms"`
}

// Repository reads the monitoring and aggregate views.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a monitoring repository backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SchemaCoverage reads per-source canonical column coverage.
func (r *Repository) SchemaCoverage(ctx context.Context) ([]SchemaCoverage, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT source_table_id, total_rows, degraded_rate,
		        null_service_rate, null_message_rate, null_trace_rate
		 FROM ingest_schema_coverage
		 ORDER BY source_table_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema coverage: %w", err)
	}
	defer rows.Close()

	out := []SchemaCoverage{}
	for rows.Next() {
		var c SchemaCoverage
		if scanErr := rows.Scan(
			&c.SourceTableID,
			&c.TotalRows,
			&c.DegradedRate,
			&c.NullServiceRate,
			&c.NullMessageRate,
			&c.NullTraceRate,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan schema coverage: %w", scanErr)
		}
		out = append(out, c)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate schema coverage: %w", rowsErr)
	}
	return out, nil
}

// IngestLatency reads the per-source ingest latency distribution.
func (r *Repository) IngestLatency(ctx context.Context) ([]IngestLatency, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT source_table_id, p50_seconds, p95_seconds, p99_seconds, max_seconds
		 FROM ingest_latency_stats
		 ORDER BY source_table_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest latency: %w", err)
	}
	defer rows.Close()

	out := []IngestLatency{}
	for rows.Next() {
		var l IngestLatency
		if scanErr := rows.Scan(&l.SourceTableID, &l.P50Seconds, &l.P95Seconds, &l.P99Seconds, &l.MaxSeconds); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ingest latency: %w", scanErr)
		}
		out = append(out, l)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate ingest latency: %w", rowsErr)
	}
	return out, nil
}

// ServiceHourlyStats reads the hourly per-service aggregates for a window.
func (r *Repository) ServiceHourlyStats(ctx context.Context, params domain.ServiceStatsParams) ([]ServiceHourlyStat, error) {
	hours := params.Hours
	if hours < 1 {
		hours = 24
	}
	if hours > 168 {
		hours = 168
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT hour, service_name, count, error_count,
		        latency_p50_ms, latency_p95_ms, latency_p99_ms
		 FROM service_hourly_stats
		 WHERE hour >= now() - make_interval(hours => $1)
		   AND ($2 = '' OR service_name = $2)
		 ORDER BY hour DESC, service_name`,
		hours,
		params.ServiceName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query service stats: %w", err)
	}
	defer rows.Close()

	out := []ServiceHourlyStat{}
	for rows.Next() {
		var s ServiceHourlyStat
		if scanErr := rows.Scan(
			&s.Hour,
			&s.ServiceName,
			&s.Count,
			&s.ErrorCount,
			&s.LatencyP50MS,
			&s.LatencyP95MS,
			&s.LatencyP99MS,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan service stats: %w", scanErr)
		}
		out = append(out, s)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate service stats: %w", rowsErr)
	}
	return out, nil
}
