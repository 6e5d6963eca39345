package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/normalizer"
)

type scriptedRawRepo struct {
	calls     int
	failures  int
	transient bool
	records   []domain.RawLogRecord
	skipped   int
}

func (s *scriptedRawRepo) FetchSince(_ context.Context, sourceTableID, _ string, _ time.Time, _ int) ([]domain.RawLogRecord, int, error) {
	s.calls++
	if s.calls <= s.failures {
		if s.transient {
			return nil, 0, &domain.TransientUpstreamError{SourceTableID: sourceTableID, Err: errors.New("connection reset")}
		}
		return nil, 0, errors.New("permission denied")
	}
	return s.records, s.skipped, nil
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	repo := &scriptedRawRepo{
		failures:  2,
		transient: true,
		records: []domain.RawLogRecord{
			{SourceTableID: "app_logs", InsertID: "x", ReceiveTimestamp: time.Now()},
		},
		skipped: 1,
	}
	e := New(repo, normalizer.DefaultRegistry(), WithRetry(3, time.Millisecond))

	result, err := e.Extract(context.Background(), "app_logs", time.Time{}, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.calls)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.Skipped)
}

func TestExtractExhaustsRetryBudget(t *testing.T) {
	repo := &scriptedRawRepo{failures: 10, transient: true}
	e := New(repo, normalizer.DefaultRegistry(), WithRetry(3, time.Millisecond))

	_, err := e.Extract(context.Background(), "app_logs", time.Time{}, 100)

	require.Error(t, err)
	assert.Equal(t, 3, repo.calls)
	var transient *domain.TransientUpstreamError
	assert.ErrorAs(t, err, &transient)
}

func TestExtractDoesNotRetryPermanentErrors(t *testing.T) {
	repo := &scriptedRawRepo{failures: 10, transient: false}
	e := New(repo, normalizer.DefaultRegistry(), WithRetry(3, time.Millisecond))

	_, err := e.Extract(context.Background(), "app_logs", time.Time{}, 100)

	require.Error(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestExtractUnknownSource(t *testing.T) {
	e := New(&scriptedRawRepo{}, normalizer.DefaultRegistry())

	_, err := e.Extract(context.Background(), "not_a_source", time.Time{}, 100)
	assert.Error(t, err)
}

func TestExtractHonorsContextCancellation(t *testing.T) {
	repo := &scriptedRawRepo{failures: 10, transient: true}
	e := New(repo, normalizer.DefaultRegistry(), WithRetry(3, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, "app_logs", time.Time{}, 100)
	assert.ErrorIs(t, err, context.Canceled)
}
