// Package loader writes normalized records idempotently into the partitioned
// canonical store.
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/metrics"
	"github.com/loglake/loglake/internal/repository"
)

// CommitResult summarizes one durable load.
type CommitResult struct {
	Loaded    int
	Conflicts int
}

// Loader performs idempotent batch writes. At most one load runs per source
// table at a time; different source tables load concurrently.
type Loader struct {
	repo repository.CanonicalLogRepository

	mu     sync.Mutex
	active map[string]time.Time
}

// New creates a loader over the canonical store.
func New(repo repository.CanonicalLogRepository) *Loader {
	return &Loader{
		repo:   repo,
		active: make(map[string]time.Time),
	}
}

// Acquire claims the per-source load slot. It fails fast with
// RunInProgressError instead of queueing a second run.
func (l *Loader) Acquire(sourceTableID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if since, held := l.active[sourceTableID]; held {
		return &domain.RunInProgressError{SourceTableID: sourceTableID, Since: since}
	}
	l.active[sourceTableID] = time.Now().UTC()
	return nil
}

// Release frees the per-source load slot.
func (l *Loader) Release(sourceTableID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, sourceTableID)
}

// Load upserts records keyed by log id. Rows committed before a mid-batch
// failure remain; re-running the identical batch produces no duplicates. The
// event_date partition for every record is ensured first, so late-arriving
// data lands in its event-time partition, not the ingest-time one.
func (l *Loader) Load(ctx context.Context, sourceTableID string, records []domain.NormalizedLogRecord, batchID uuid.UUID) (CommitResult, error) {
	if len(records) == 0 {
		return CommitResult{}, nil
	}

	if err := l.repo.EnsurePartitions(ctx, records); err != nil {
		return CommitResult{}, fmt.Errorf("failed to prepare partitions: %w", err)
	}

	loaded, conflicts, err := l.repo.InsertBatch(ctx, records, batchID)
	result := CommitResult{Loaded: loaded, Conflicts: conflicts}
	if err != nil {
		return result, err
	}

	metrics.RecordsLoadedTotal.WithLabelValues(sourceTableID).Add(float64(loaded))
	metrics.LoaderConflictsTotal.WithLabelValues(sourceTableID).Add(float64(conflicts))
	return result, nil
}
