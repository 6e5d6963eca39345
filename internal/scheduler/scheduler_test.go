package scheduler

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/loglake/loglake/internal/domain"
)

func newCaptureScheduler(buf *bytes.Buffer) *Scheduler {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(nil, time.Minute, logger)
}

func TestReportErrorsSurfacesFailureJoinedWithBusySource(t *testing.T) {
	var buf bytes.Buffer
	s := newCaptureScheduler(&buf)

	busy := &domain.RunInProgressError{SourceTableID: "app_logs", Since: time.Now()}
	failure := &domain.BatchFailure{
		BatchID:       uuid.New(),
		SourceTableID: "audit_logs",
		Stage:         "load",
		Err:           errors.New("partition missing"),
	}
	s.reportErrors(errors.Join(busy, failure))

	out := buf.String()
	// A busy source is routine chatter; the load failure riding in the same
	// joined error must still land at error level.
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "skipping busy source")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "audit_logs")
}

func TestReportErrorsAllBusyStaysQuiet(t *testing.T) {
	var buf bytes.Buffer
	s := newCaptureScheduler(&buf)

	s.reportErrors(errors.Join(
		&domain.RunInProgressError{SourceTableID: "app_logs", Since: time.Now()},
		&domain.RunInProgressError{SourceTableID: "build_logs", Since: time.Now()},
	))

	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestFlatten(t *testing.T) {
	assert.Nil(t, flatten(nil))

	single := errors.New("boom")
	assert.Equal(t, []error{single}, flatten(single))

	other := errors.New("bang")
	assert.Equal(t, []error{single, other}, flatten(errors.Join(single, other)))
}
