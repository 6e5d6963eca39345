// Package querybuilder turns validated query parameters into parameterized,
// partition-pruned SQL against the canonical views. It is pure and
// side-effect-free; cost enforcement happens in the query service before
// anything executes.
package querybuilder

import (
	"fmt"
	"strings"
	"time"

	"github.com/loglake/loglake/internal/domain"
)

// Bounds on the query surface.
const (
	MinLookbackHours = 1
	MaxLookbackHours = 168
	MinLimit         = 1
	MaxLimit         = 1000
)

// unifiedView is the schema-unifying projection every query reads.
const unifiedView = "canonical_logs_unified"

// selectColumns mirrors the canonical store column list. The set is
// additive-only; new raw fields never change it.
const selectColumns = `log_id, event_date, insert_id, source_table_id,
	event_timestamp, ingest_timestamp, severity, severity_level, service_name,
	message, http_method, http_path, http_status, http_latency_ms, trace_id,
	span_id, error_type, error_message, is_error, is_audit, is_request,
	etl_status, etl_pipeline_version, etl_batch_id, record_version,
	universal_envelope`

// Query is a fully parameterized statement plus the window it scans, which
// the scan estimator prices before execution.
type Query struct {
	SQL  string
	Args []any
	From time.Time
	To   time.Time
}

// Builder validates parameters and renders queries. User input only ever
// lands in Args, never in the SQL text.
type Builder struct {
	maxLookbackHours int
	defaultLimit     int
	now              func() time.Time
}

// Option configures Builder behavior.
type Option func(*Builder)

// WithMaxLookbackHours tightens the lookback bound below the global maximum.
func WithMaxLookbackHours(hours int) Option {
	return func(b *Builder) {
		if hours >= MinLookbackHours && hours <= MaxLookbackHours {
			b.maxLookbackHours = hours
		}
	}
}

// WithDefaultLimit sets the page size applied when params omit one.
func WithDefaultLimit(limit int) Option {
	return func(b *Builder) {
		if limit >= MinLimit && limit <= MaxLimit {
			b.defaultLimit = limit
		}
	}
}

// WithClock fixes the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a query builder.
func New(opts ...Option) *Builder {
	b := &Builder{
		maxLookbackHours: MaxLookbackHours,
		defaultLimit:     100,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders a canonical log query. It always constrains the event_date
// partition column alongside the timestamp range so partition pruning is
// preserved.
func (b *Builder) Build(params domain.QueryParams) (Query, error) {
	hours := params.Hours
	if hours == 0 {
		hours = 24
	}
	if hours < MinLookbackHours || hours > b.maxLookbackHours {
		return Query{}, fmt.Errorf("hours must be within [%d, %d], got %d", MinLookbackHours, b.maxLookbackHours, params.Hours)
	}

	limit := params.Limit
	if limit == 0 {
		limit = b.defaultLimit
	}
	if limit < MinLimit || limit > MaxLimit {
		return Query{}, fmt.Errorf("limit must be within [%d, %d], got %d", MinLimit, MaxLimit, params.Limit)
	}

	to := b.now().UTC()
	from := to.Add(-time.Duration(hours) * time.Hour)

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Partition bound first, then the precise timestamp range.
	where = append(where, fmt.Sprintf("event_date >= %s", arg(domain.EventDateOf(from))))
	where = append(where, fmt.Sprintf("event_date <= %s", arg(domain.EventDateOf(to))))
	where = append(where, fmt.Sprintf("event_timestamp >= %s", arg(from)))
	where = append(where, fmt.Sprintf("event_timestamp <= %s", arg(to)))

	if params.MinSeverity != "" {
		level := params.MinSeverity.Level()
		if level == 0 && params.MinSeverity != domain.SeverityDefault {
			return Query{}, fmt.Errorf("unknown severity %q", params.MinSeverity)
		}
		where = append(where, fmt.Sprintf("severity_level >= %s", arg(level)))
	}
	if params.ServiceName != "" {
		where = append(where, fmt.Sprintf("service_name = %s", arg(params.ServiceName)))
	}
	if params.Search != "" {
		where = append(where, fmt.Sprintf("message ILIKE %s", arg("%"+escapeLike(params.Search)+"%")))
	}
	if len(params.SourceTables) > 0 {
		where = append(where, fmt.Sprintf("source_table_id = ANY(%s)", arg(params.SourceTables)))
	}

	sql := fmt.Sprintf(
		"SELECT %s\nFROM %s\nWHERE %s\nORDER BY event_timestamp DESC\nLIMIT %s",
		selectColumns,
		unifiedView,
		strings.Join(where, "\n  AND "),
		arg(limit),
	)

	return Query{SQL: sql, Args: args, From: from, To: to}, nil
}

// BuildTraceQuery renders the trace-correlation query: every record carrying
// the trace id within the lookback window, event time ascending, for causal
// request reconstruction.
func (b *Builder) BuildTraceQuery(traceID string, lookbackHours int) (Query, error) {
	if strings.TrimSpace(traceID) == "" {
		return Query{}, fmt.Errorf("trace id is required")
	}
	if lookbackHours == 0 {
		lookbackHours = 24
	}
	if lookbackHours < MinLookbackHours || lookbackHours > b.maxLookbackHours {
		return Query{}, fmt.Errorf("lookback hours must be within [%d, %d], got %d", MinLookbackHours, b.maxLookbackHours, lookbackHours)
	}

	to := b.now().UTC()
	from := to.Add(-time.Duration(lookbackHours) * time.Hour)

	sql := fmt.Sprintf(
		"SELECT %s\nFROM %s\nWHERE event_date >= $1\n  AND event_date <= $2\n  AND event_timestamp >= $3\n  AND event_timestamp <= $4\n  AND trace_id = $5\nORDER BY event_timestamp ASC\nLIMIT $6",
		selectColumns,
		unifiedView,
	)
	args := []any{
		domain.EventDateOf(from),
		domain.EventDateOf(to),
		from,
		to,
		traceID,
		MaxLimit,
	}

	return Query{SQL: sql, Args: args, From: from, To: to}, nil
}

// escapeLike neutralizes LIKE metacharacters in free-text search input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
