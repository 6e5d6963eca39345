package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransientUpstreamError marks a source-table read failure that is worth
// retrying before the batch is failed.
type TransientUpstreamError struct {
	SourceTableID string
	Err           error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("transient upstream error on %s: %v", e.SourceTableID, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// MalformedRecordError marks a single unusable raw record. It is skipped and
// counted; it never aborts the batch.
type MalformedRecordError struct {
	SourceTableID string
	InsertID      string
	Reason        string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s/%s: %s", e.SourceTableID, e.InsertID, e.Reason)
}

// SchemaDriftWarning reports an unexpected raw field shape. It is logged only.
type SchemaDriftWarning struct {
	SourceTableID string
	Field         string
	Detail        string
}

func (e *SchemaDriftWarning) Error() string {
	return fmt.Sprintf("schema drift on %s.%s: %s", e.SourceTableID, e.Field, e.Detail)
}

// LoaderConflictError marks a redelivered, already committed log id. The load
// is an idempotent no-op; the type exists so callers can count rather than
// fail.
type LoaderConflictError struct {
	LogID uuid.UUID
}

func (e *LoaderConflictError) Error() string {
	return fmt.Sprintf("log %s already committed", e.LogID)
}

// CostLimitExceededError rejects a query before execution when its estimated
// scan exceeds the configured byte cap. No partial data is ever returned.
type CostLimitExceededError struct {
	EstimatedBytes int64
	CapBytes       int64
}

func (e *CostLimitExceededError) Error() string {
	return fmt.Sprintf("estimated scan of %d bytes exceeds cap of %d bytes", e.EstimatedBytes, e.CapBytes)
}

// BatchFailure aborts a whole batch. The watermark is not advanced, so the
// window is re-extracted on the next run.
type BatchFailure struct {
	BatchID       uuid.UUID
	SourceTableID string
	Stage         string
	Err           error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("batch %s on %s failed during %s: %v", e.BatchID, e.SourceTableID, e.Stage, e.Err)
}

func (e *BatchFailure) Unwrap() error { return e.Err }

// RunInProgressError rejects a second concurrent run for the same source table.
type RunInProgressError struct {
	SourceTableID string
	Since         time.Time
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("a run for %s is already in progress since %s", e.SourceTableID, e.Since.Format(time.RFC3339))
}
