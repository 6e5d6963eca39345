// Package views maintains the schema-unifying projection over the canonical
// store. The monitoring and aggregate views are static and live in
// migrations; the unified view is derived from the source registry, so it is
// regenerated at startup whenever a mapping is added.
package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/normalizer"
)

// UnifiedViewName is the projection every query reads.
const UnifiedViewName = "canonical_logs_unified"

// canonicalSelect reads loaded records straight from the partitioned store.
const canonicalSelect = `SELECT log_id, event_date, insert_id, source_table_id,
  event_timestamp, ingest_timestamp, severity, severity_level, service_name,
  message, http_method, http_path, http_status, http_latency_ms, trace_id,
  span_id, error_type, error_message, is_error, is_audit, is_request,
  etl_status, etl_pipeline_version, etl_batch_id, record_version,
  universal_envelope
FROM canonical_logs`

// Manager regenerates registry-derived views.
type Manager struct {
	pool     *pgxpool.Pool
	registry *normalizer.Registry
}

// NewManager wires a view manager over the canonical store.
func NewManager(pool *pgxpool.Pool, registry *normalizer.Registry) *Manager {
	return &Manager{pool: pool, registry: registry}
}

// EnsureViews creates or replaces the unified view. Unbackfilled sources are
// unioned in at query time: their raw rows past the ingestion watermark are
// projected onto the canonical columns with a minimal mapping, so readers see
// them before a batch loads them.
func (m *Manager) EnsureViews(ctx context.Context) error {
	sql := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", UnifiedViewName, m.unifiedViewBody())
	if _, err := m.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to create view %s: %w", UnifiedViewName, err)
	}
	return nil
}

// UnifiedViewSQL returns the full view definition; exposed for inspection.
func (m *Manager) UnifiedViewSQL() string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS\n%s", UnifiedViewName, m.unifiedViewBody())
}

func (m *Manager) unifiedViewBody() string {
	parts := []string{canonicalSelect}
	for _, mapping := range m.registry.List() {
		if mapping.Backfilled {
			continue
		}
		parts = append(parts, rawTailSelect(mapping))
	}
	return strings.Join(parts, "\nUNION ALL\n")
}

// rawTailSelect projects one unbackfilled raw table onto the canonical
// columns, restricted to rows the pipeline has not loaded yet. The log id is
// the same name-based UUID the loader derives in Go (uuid-ossp
// uuid_generate_v5 over the shared namespace and the source/insert-id name),
// so a row keeps its identity across the raw tail and its eventual canonical
// form.
func rawTailSelect(mapping normalizer.Mapping) string {
	message := "''"
	if len(mapping.Fields.Message) > 0 {
		message = fmt.Sprintf("COALESCE(%s, '')", payloadTextExpr(mapping.Fields.Message[0]))
	}
	eventTime := "r.receive_timestamp"
	if len(mapping.Fields.EventTime) > 0 {
		eventTime = fmt.Sprintf(
			"LEAST(COALESCE((%s)::timestamptz, r.receive_timestamp), r.receive_timestamp)",
			payloadTextExpr(mapping.Fields.EventTime[0]),
		)
	}
	severity := "'DEFAULT'"
	if len(mapping.Fields.Severity) > 0 {
		severity = fmt.Sprintf("UPPER(COALESCE(%s, 'DEFAULT'))", payloadTextExpr(mapping.Fields.Severity[0]))
	}
	service := quoteLiteral(mapping.FallbackService)
	if len(mapping.Fields.Service) > 0 {
		service = fmt.Sprintf("COALESCE(%s, %s)", payloadTextExpr(mapping.Fields.Service[0]), quoteLiteral(mapping.FallbackService))
	}

	return fmt.Sprintf(`SELECT
  uuid_generate_v5('%s'::uuid, %s || '/' || r.insert_id) AS log_id,
  (r.receive_timestamp AT TIME ZONE 'UTC')::date AS event_date,
  r.insert_id,
  %s AS source_table_id,
  %s AS event_timestamp,
  r.receive_timestamp AS ingest_timestamp,
  %s AS severity,
  0 AS severity_level,
  %s AS service_name,
  %s AS message,
  NULL::text AS http_method,
  NULL::text AS http_path,
  NULL::integer AS http_status,
  NULL::double precision AS http_latency_ms,
  NULL::text AS trace_id,
  NULL::text AS span_id,
  NULL::text AS error_type,
  NULL::text AS error_message,
  false AS is_error,
  %t AS is_audit,
  false AS is_request,
  'raw' AS etl_status,
  '' AS etl_pipeline_version,
  NULL::uuid AS etl_batch_id,
  1 AS record_version,
  '{}'::jsonb AS universal_envelope
FROM %s r
WHERE r.receive_timestamp > COALESCE(
  (SELECT w.position FROM watermarks w WHERE w.source_table_id = %s),
  'epoch'::timestamptz)`,
		domain.LogIDNamespace.String(),
		quoteLiteral(mapping.SourceTableID),
		quoteLiteral(mapping.SourceTableID),
		eventTime,
		severity,
		service,
		message,
		mapping.IsAudit,
		mapping.Table,
		quoteLiteral(mapping.SourceTableID),
	)
}

// payloadTextExpr renders a dotted payload path as a jsonb text extraction,
// e.g. "proto_payload.status.message" -> r.payload->'proto_payload'->'status'->>'message'.
func payloadTextExpr(path string) string {
	segments := strings.Split(path, ".")
	var b strings.Builder
	b.WriteString("r.payload")
	for i, segment := range segments {
		if i == len(segments)-1 {
			b.WriteString("->>")
		} else {
			b.WriteString("->")
		}
		b.WriteString(quoteLiteral(segment))
	}
	return b.String()
}

// quoteLiteral single-quotes a registry-supplied identifier for embedding in
// view DDL. Values come from compiled-in mappings, never user input.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
