package domain

import (
	"time"

	"github.com/google/uuid"
)

// ETL statuses recorded on canonical rows.
const (
	ETLStatusNormalized = "normalized"
	ETLStatusDegraded   = "degraded"
)

// PipelineVersion stamps canonical rows with the normalization code version.
// Bumping it causes reprocessed rows to carry a new record_version; existing
// rows are never mutated.
const PipelineVersion = "1.0.0"

// EnvelopeSchemaVersion is the declared version of the UniversalEnvelope shape.
const EnvelopeSchemaVersion = "1.0"

// RawLogRecord is one unprocessed row from a source table. The payload shape
// is owned by the upstream producer and treated as opaque.
type RawLogRecord struct {
	SourceTableID    string
	InsertID         string
	ReceiveTimestamp time.Time
	Payload          map[string]any
}

// NormalizedLogRecord is the canonical shape every consumer reads.
type NormalizedLogRecord struct {
	LogID    uuid.UUID `json:"log_id"`
	InsertID string    `json:"insert_id"`

	SourceTableID  string    `json:"source_table_id"`
	EventTimestamp time.Time `json:"event_timestamp"`
	EventDate      time.Time `json:"event_date"`

	Severity      Severity `json:"severity"`
	SeverityLevel int      `json:"severity_level"`
	ServiceName   string   `json:"service_name"`
	Message       string   `json:"message"`

	HTTPMethod    string  `json:"http_method,omitempty"`
	HTTPPath      string  `json:"http_path,omitempty"`
	HTTPStatus    int     `json:"http_status,omitempty"`
	HTTPLatencyMS float64 `json:"http_latency_ms,omitempty"`

	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	IsError   bool `json:"is_error"`
	IsAudit   bool `json:"is_audit"`
	IsRequest bool `json:"is_request"`

	ETLStatus          string    `json:"etl_status"`
	ETLPipelineVersion string    `json:"etl_pipeline_version"`
	ETLBatchID         uuid.UUID `json:"etl_batch_id,omitempty"`

	Envelope UniversalEnvelope `json:"universal_envelope"`
}

// LogIDNamespace scopes deterministic log IDs; the same (source table,
// insert id) pair always yields the same log_id, which is what makes
// redelivery idempotent downstream. The unified view derives the same IDs in
// SQL with uuid_generate_v5 over this namespace.
var LogIDNamespace = uuid.MustParse("4b8f6a1e-3c2d-4f5a-9d7e-1a0b2c3d4e5f")

// NewLogID derives the canonical log ID for a raw record as a name-based
// (version 5) UUID.
func NewLogID(sourceTableID, insertID string) uuid.UUID {
	return uuid.NewSHA1(LogIDNamespace, []byte(sourceTableID+"/"+insertID))
}

// EventDateOf truncates a timestamp to its UTC date, the partition key of the
// canonical store.
func EventDateOf(ts time.Time) time.Time {
	utc := ts.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
