package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/query"
	"github.com/loglake/loglake/internal/querybuilder"
)

type stubCanonicalRepo struct {
	records []domain.NormalizedLogRecord
}

func (s *stubCanonicalRepo) InsertBatch(context.Context, []domain.NormalizedLogRecord, uuid.UUID) (int, int, error) {
	return 0, 0, nil
}

func (s *stubCanonicalRepo) EnsurePartitions(context.Context, []domain.NormalizedLogRecord) error {
	return nil
}

func (s *stubCanonicalRepo) Select(context.Context, string, []any) ([]domain.NormalizedLogRecord, error) {
	return s.records, nil
}

type stubEstimator struct {
	bytes int64
	err   error
}

func (s *stubEstimator) EstimateScanBytes(context.Context, time.Time, time.Time) (int64, error) {
	return s.bytes, s.err
}

func newTestHandlers(records []domain.NormalizedLogRecord, estimateBytes, capBytes int64, viewTarget string) *Handlers {
	svc := query.New(
		querybuilder.New(),
		&stubCanonicalRepo{records: records},
		&stubEstimator{bytes: estimateBytes},
		capBytes,
		viewTarget,
		nil,
	)
	return New(svc, nil, nil, nil, nil)
}

func TestHealthz(t *testing.T) {
	h := newTestHandlers(nil, 0, 1<<30, query.ViewTargetFlat)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestQueryFlatResponse(t *testing.T) {
	records := []domain.NormalizedLogRecord{{
		LogID:       domain.NewLogID("app_logs", "a"),
		ServiceName: "checkout",
		Message:     "payment declined",
		Severity:    domain.SeverityError,
		IsError:     true,
		Envelope:    domain.UniversalEnvelope{Environment: "prod"},
	}}
	h := newTestHandlers(records, 1024, 1<<30, query.ViewTargetFlat)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=24&service=checkout", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		View    string           `json:"view"`
		Count   int              `json:"count"`
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "flat", body.View)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "checkout", body.Records[0]["service_name"])
	assert.Equal(t, "prod", body.Records[0]["environment"])
	// The flat projection never carries the envelope.
	assert.NotContains(t, body.Records[0], "universal_envelope")
}

func TestQueryEnvelopeResponse(t *testing.T) {
	records := []domain.NormalizedLogRecord{{
		LogID:    domain.NewLogID("app_logs", "a"),
		Envelope: domain.UniversalEnvelope{SchemaVersion: "1.0", Environment: "staging"},
	}}
	h := newTestHandlers(records, 1024, 1<<30, query.ViewTargetEnvelope)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=24", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		View    string                     `json:"view"`
		Records []domain.UniversalEnvelope `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "envelope", body.View)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "staging", body.Records[0].Environment)
}

func TestQueryCostRejection(t *testing.T) {
	h := newTestHandlers(nil, 5<<30, 1<<30, query.ViewTargetFlat)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=168", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(5<<30), body["estimated_bytes"])
	assert.Equal(t, float64(1<<30), body["cap_bytes"])
	assert.Contains(t, body["hint"], "narrow the time window")
}

func TestQueryBadParams(t *testing.T) {
	h := newTestHandlers(nil, 0, 1<<30, query.ViewTargetFlat)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=9999", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryUnknownMinSeverityRejected(t *testing.T) {
	h := newTestHandlers(nil, 0, 1<<30, query.ViewTargetFlat)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=24&min_severity=LOUD", nil))

	// An unrecognized threshold must fail loudly rather than degrade to a
	// DEFAULT no-op filter.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "min_severity")
}

func TestQueryEstimatorFailureIsInternal(t *testing.T) {
	svc := query.New(
		querybuilder.New(),
		&stubCanonicalRepo{},
		&stubEstimator{err: errors.New("pg_catalog unreachable")},
		1<<30,
		query.ViewTargetFlat,
		nil,
	)
	h := New(svc, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/v1/query?hours=24", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Server-side failures never leak their cause to the caller.
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestParseQueryParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/v1/query?hours=48&min_severity=warn&service=api&search=timeout&sources=app_logs,%20audit_logs&limit=10", nil)

	params, err := parseQueryParams(r)
	require.NoError(t, err)

	assert.Equal(t, 48, params.Hours)
	assert.Equal(t, domain.SeverityWarning, params.MinSeverity)
	assert.Equal(t, "api", params.ServiceName)
	assert.Equal(t, "timeout", params.Search)
	assert.Equal(t, []string{"app_logs", "audit_logs"}, params.SourceTables)
	assert.Equal(t, 10, params.Limit)
}

func TestExportBadFormat(t *testing.T) {
	h := newTestHandlers(nil, 0, 1<<30, query.ViewTargetFlat)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/v1/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
