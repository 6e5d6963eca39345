// Package query executes canonical log queries behind the scan cost guardrail.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/metrics"
	"github.com/loglake/loglake/internal/querybuilder"
	"github.com/loglake/loglake/internal/repository"
)

// View targets for result rendering.
const (
	ViewTargetFlat     = "flat"
	ViewTargetEnvelope = "envelope"
)

// ExecutionError marks a query that passed validation but failed to run, so
// transports can tell a server-side failure from bad parameters.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result is one executed query: the records plus the accepted scan estimate.
type Result struct {
	Records        []domain.NormalizedLogRecord
	EstimatedBytes int64
	ViewTarget     string
}

// Service prices every query against the partition sizes it would touch and
// refuses to execute past the configured cap.
type Service struct {
	builder    *querybuilder.Builder
	repo       repository.CanonicalLogRepository
	estimator  repository.ScanEstimator
	capBytes   int64
	viewTarget string
	logger     *slog.Logger
}

// New wires a query service. capBytes <= 0 disables the guardrail.
func New(
	builder *querybuilder.Builder,
	repo repository.CanonicalLogRepository,
	estimator repository.ScanEstimator,
	capBytes int64,
	viewTarget string,
	logger *slog.Logger,
) *Service {
	if viewTarget != ViewTargetEnvelope {
		viewTarget = ViewTargetFlat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		builder:    builder,
		repo:       repo,
		estimator:  estimator,
		capBytes:   capBytes,
		viewTarget: viewTarget,
		logger:     logger,
	}
}

// Query builds, prices, and executes a filtered canonical log query.
func (s *Service) Query(ctx context.Context, params domain.QueryParams) (Result, error) {
	q, err := s.builder.Build(params)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return Result{}, err
	}
	return s.execute(ctx, q)
}

// Trace returns every record sharing a trace id within the lookback window,
// event time ascending.
func (s *Service) Trace(ctx context.Context, traceID string, lookbackHours int) (Result, error) {
	q, err := s.builder.BuildTraceQuery(traceID, lookbackHours)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return Result{}, err
	}
	return s.execute(ctx, q)
}

func (s *Service) execute(ctx context.Context, q querybuilder.Query) (Result, error) {
	estimate, err := s.estimator.EstimateScanBytes(ctx, q.From, q.To)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return Result{}, &ExecutionError{Op: "estimate scan cost", Err: err}
	}
	if s.capBytes > 0 && estimate > s.capBytes {
		metrics.QueriesTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("query rejected by scan guardrail",
			slog.Int64("estimated_bytes", estimate),
			slog.Int64("cap_bytes", s.capBytes),
		)
		return Result{}, &domain.CostLimitExceededError{
			EstimatedBytes: estimate,
			CapBytes:       s.capBytes,
		}
	}
	metrics.QueryScanEstimateBytes.Observe(float64(estimate))

	records, err := s.repo.Select(ctx, q.SQL, q.Args)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return Result{}, &ExecutionError{Op: "execute query", Err: err}
	}

	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	return Result{
		Records:        records,
		EstimatedBytes: estimate,
		ViewTarget:     s.viewTarget,
	}, nil
}
