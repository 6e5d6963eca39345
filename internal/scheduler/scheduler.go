// Package scheduler drives periodic ingestion runs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/pipeline"
)

// Scheduler runs the full pipeline on a fixed interval until its context is
// canceled. Runs never overlap per source table; the loader's run slot turns
// an overlapping tick into a no-op for the sources still busy.
type Scheduler struct {
	pipeline *pipeline.Pipeline
	interval time.Duration
	logger   *slog.Logger
}

// New creates a scheduler. Intervals below one second are clamped up.
func New(p *pipeline.Pipeline, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval < time.Second {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{pipeline: p, interval: interval, logger: logger}
}

// Run blocks, executing one pipeline pass per tick, and returns when ctx is
// canceled. An immediate first pass runs before the first tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	batches, err := s.pipeline.RunAll(ctx)
	s.reportErrors(err)
	for _, b := range batches {
		if b.RowsExtracted > 0 {
			s.logger.Debug("batch complete",
				slog.String("source_table", b.SourceTableID),
				slog.Int("loaded", b.RowsLoaded),
			)
		}
	}
}

// reportErrors logs every per-source error from a pass on its own line. A
// source still busy from the previous tick is routine; anything else is a
// real failure and must not hide behind a busy sibling in the joined error.
func (s *Scheduler) reportErrors(err error) {
	for _, e := range flatten(err) {
		var inProgress *domain.RunInProgressError
		if errors.As(e, &inProgress) {
			s.logger.Debug("skipping busy source", slog.String("source_table", inProgress.SourceTableID))
			continue
		}
		s.logger.Error("pipeline pass failed", slog.String("error", e.Error()))
	}
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
