// Package handlers implements the JSON API over the canonical store and the
// ingestion pipeline.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/export"
	"github.com/loglake/loglake/internal/monitoring"
	"github.com/loglake/loglake/internal/pipeline"
	"github.com/loglake/loglake/internal/query"
	"github.com/loglake/loglake/internal/repository"
)

// Handlers carries the API dependencies.
type Handlers struct {
	query      *query.Service
	pipeline   *pipeline.Pipeline
	monitoring *monitoring.Repository
	batches    repository.BatchRepository
	logger     *slog.Logger
}

// New wires the API handlers.
func New(
	querySvc *query.Service,
	pipe *pipeline.Pipeline,
	mon *monitoring.Repository,
	batches repository.BatchRepository,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		query:      querySvc,
		pipeline:   pipe,
		monitoring: mon,
		batches:    batches,
		logger:     logger,
	}
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Query serves GET /v1/query.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.query.Query(r.Context(), params)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse(result))
}

// Trace serves GET /v1/traces/{id}.
func (h *Handlers) Trace(w http.ResponseWriter, r *http.Request) {
	traceID := r.PathValue("id")
	hours, err := intParam(r, "hours", 24)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.query.Trace(r.Context(), traceID, hours)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse(result))
}

// ServiceStats serves GET /v1/services/stats.
func (h *Handlers) ServiceStats(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", 24)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := h.monitoring.ServiceHourlyStats(r.Context(), domain.ServiceStatsParams{
		Hours:       hours,
		ServiceName: r.URL.Query().Get("service"),
	})
	if err != nil {
		h.internal(w, "service stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// SchemaCoverage serves GET /v1/monitoring/schema-coverage.
func (h *Handlers) SchemaCoverage(w http.ResponseWriter, r *http.Request) {
	coverage, err := h.monitoring.SchemaCoverage(r.Context())
	if err != nil {
		h.internal(w, "schema coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coverage": coverage})
}

// IngestLatency serves GET /v1/monitoring/ingest-latency.
func (h *Handlers) IngestLatency(w http.ResponseWriter, r *http.Request) {
	latency, err := h.monitoring.IngestLatency(r.Context())
	if err != nil {
		h.internal(w, "ingest latency", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"latency": latency})
}

// RunSource serves POST /v1/sources/{id}/run: one on-demand pipeline run.
func (h *Handlers) RunSource(w http.ResponseWriter, r *http.Request) {
	sourceTableID := r.PathValue("id")

	batch, err := h.pipeline.Run(r.Context(), sourceTableID)
	if err != nil {
		var inProgress *domain.RunInProgressError
		if errors.As(err, &inProgress) {
			writeError(w, http.StatusConflict, err)
			return
		}
		var failure *domain.BatchFailure
		if errors.As(err, &failure) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":    failure.Error(),
				"batch_id": failure.BatchID,
				"stage":    failure.Stage,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch": batch})
}

// Batches serves GET /v1/batches.
func (h *Handlers) Batches(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batches, err := h.batches.List(r.Context(), r.URL.Query().Get("source"), limit)
	if err != nil {
		h.internal(w, "batch list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

// Export serves GET /v1/export: the query surface rendered as a download.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.query.Query(r.Context(), params)
	if err != nil {
		h.writeQueryError(w, err)
		return
	}

	file, err := export.Export(result.Records, export.Format(r.URL.Query().Get("format")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Error("failed to write export body", slog.String("error", err.Error()))
	}
}

func (h *Handlers) writeQueryError(w http.ResponseWriter, err error) {
	var costErr *domain.CostLimitExceededError
	if errors.As(err, &costErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":           "query rejected: estimated scan exceeds the configured cap",
			"estimated_bytes": costErr.EstimatedBytes,
			"cap_bytes":       costErr.CapBytes,
			"hint":            "narrow the time window or add filters",
		})
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}
	var execErr *query.ExecutionError
	if errors.As(err, &execErr) {
		h.internal(w, "query", err)
		return
	}
	// Anything the builder rejected is the caller's to fix.
	writeError(w, http.StatusBadRequest, err)
}

func (h *Handlers) internal(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", slog.String("op", op), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func parseQueryParams(r *http.Request) (domain.QueryParams, error) {
	q := r.URL.Query()

	hours, err := intParam(r, "hours", 0)
	if err != nil {
		return domain.QueryParams{}, err
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return domain.QueryParams{}, err
	}

	var minSeverity domain.Severity
	if raw := q.Get("min_severity"); raw != "" {
		sev, ok := domain.LookupSeverity(raw)
		if !ok {
			return domain.QueryParams{}, fmt.Errorf("unknown min_severity: %q", raw)
		}
		minSeverity = sev
	}

	var sources []string
	if raw := q.Get("sources"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
	}

	return domain.QueryParams{
		Hours:        hours,
		MinSeverity:  minSeverity,
		ServiceName:  q.Get("service"),
		Search:       q.Get("search"),
		SourceTables: sources,
		Limit:        limit,
	}, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

// queryResponse renders a query result per the configured view target: the
// flat operational columns, or the full universal envelope per record.
func queryResponse(result query.Result) map[string]any {
	if result.ViewTarget == query.ViewTargetEnvelope {
		envelopes := make([]domain.UniversalEnvelope, 0, len(result.Records))
		for _, rec := range result.Records {
			envelopes = append(envelopes, rec.Envelope)
		}
		return map[string]any{
			"view":            query.ViewTargetEnvelope,
			"count":           len(envelopes),
			"estimated_bytes": result.EstimatedBytes,
			"records":         envelopes,
		}
	}

	flat := make([]flatRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		flat = append(flat, toFlat(rec))
	}
	return map[string]any{
		"view":            query.ViewTargetFlat,
		"count":           len(flat),
		"estimated_bytes": result.EstimatedBytes,
		"records":         flat,
	}
}

// flatRecord is the operational projection without the envelope.
type flatRecord struct {
	LogID          string  `json:"log_id"`
	SourceTableID  string  `json:"source_table_id"`
	EventTimestamp string  `json:"event_timestamp"`
	Severity       string  `json:"severity"`
	SeverityLevel  int     `json:"severity_level"`
	ServiceName    string  `json:"service_name"`
	Environment    string  `json:"environment"`
	Message        string  `json:"message"`
	TraceID        string  `json:"trace_id,omitempty"`
	SpanID         string  `json:"span_id,omitempty"`
	HTTPMethod     string  `json:"http_method,omitempty"`
	HTTPPath       string  `json:"http_path,omitempty"`
	HTTPStatus     int     `json:"http_status,omitempty"`
	HTTPLatencyMS  float64 `json:"http_latency_ms,omitempty"`
	ErrorType      string  `json:"error_type,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	IsError        bool    `json:"is_error"`
	IsAudit        bool    `json:"is_audit"`
	ETLStatus      string  `json:"etl_status"`
}

func toFlat(rec domain.NormalizedLogRecord) flatRecord {
	return flatRecord{
		LogID:          rec.LogID.String(),
		SourceTableID:  rec.SourceTableID,
		EventTimestamp: rec.EventTimestamp.UTC().Format(time.RFC3339Nano),
		Severity:       string(rec.Severity),
		SeverityLevel:  rec.SeverityLevel,
		ServiceName:    rec.ServiceName,
		Environment:    rec.Envelope.Environment,
		Message:        rec.Message,
		TraceID:        rec.TraceID,
		SpanID:         rec.SpanID,
		HTTPMethod:     rec.HTTPMethod,
		HTTPPath:       rec.HTTPPath,
		HTTPStatus:     rec.HTTPStatus,
		HTTPLatencyMS:  rec.HTTPLatencyMS,
		ErrorType:      rec.ErrorType,
		ErrorMessage:   rec.ErrorMessage,
		IsError:        rec.IsError,
		IsAudit:        rec.IsAudit,
		ETLStatus:      rec.ETLStatus,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
