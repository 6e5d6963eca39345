// Package extractor pulls unprocessed raw records per source table since a
// persisted watermark.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/normalizer"
	"github.com/loglake/loglake/internal/repository"
)

// Result is one extraction pass over a source table.
type Result struct {
	Records []domain.RawLogRecord
	// Skipped counts malformed rows dropped without aborting the batch.
	Skipped int
}

// Extractor reads raw source tables with a bounded retry budget.
type Extractor struct {
	repo      repository.RawLogRepository
	registry  *normalizer.Registry
	attempts  int
	baseDelay time.Duration
	timeout   time.Duration
}

// Option configures Extractor behavior.
type Option func(*Extractor)

// WithRetry sets the retry budget and base backoff delay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(e *Extractor) {
		if attempts > 0 {
			e.attempts = attempts
		}
		if baseDelay > 0 {
			e.baseDelay = baseDelay
		}
	}
}

// WithTimeout bounds each upstream read attempt.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an extractor over the raw source tables in the registry.
func New(repo repository.RawLogRepository, registry *normalizer.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		repo:      repo,
		registry:  registry,
		attempts:  3,
		baseDelay: time.Second,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns records with receive_timestamp strictly after the watermark,
// receive-timestamp ascending. Transient upstream failures are retried with
// exponential backoff (1x, 2x, 4x the base delay); exhausting the budget fails
// only this batch and leaves the watermark untouched.
func (e *Extractor) Extract(ctx context.Context, sourceTableID string, watermark time.Time, maxRows int) (Result, error) {
	mapping, ok := e.registry.Lookup(sourceTableID)
	if !ok {
		return Result{}, fmt.Errorf("unknown source table %q", sourceTableID)
	}

	var lastErr error
	for attempt := 0; attempt < e.attempts; attempt++ {
		if attempt > 0 {
			wait := e.baseDelay << (attempt - 1)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Result{}, ctx.Err()
			case <-timer.C:
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		records, skipped, err := e.repo.FetchSince(attemptCtx, sourceTableID, mapping.Table, watermark, maxRows)
		cancel()
		if err == nil {
			return Result{Records: records, Skipped: skipped}, nil
		}

		var transient *domain.TransientUpstreamError
		if !errors.As(err, &transient) {
			return Result{}, err
		}
		lastErr = err
	}

	return Result{}, fmt.Errorf("retry budget exhausted for %s: %w", sourceTableID, lastErr)
}
