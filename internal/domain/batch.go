package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the terminal or in-flight state of one pipeline run.
type BatchStatus string

const (
	BatchStatusRunning BatchStatus = "running"
	BatchStatusLoaded  BatchStatus = "loaded"
	BatchStatusFailed  BatchStatus = "failed"
)

// Batch is one extract -> normalize -> load execution unit for one source
// table over one time window.
type Batch struct {
	ID            uuid.UUID   `json:"id"`
	SourceTableID string      `json:"source_table_id"`
	WindowStart   time.Time   `json:"window_start"`
	WindowEnd     time.Time   `json:"window_end"`
	RowsExtracted int         `json:"rows_extracted"`
	RowsLoaded    int         `json:"rows_loaded"`
	RowsSkipped   int         `json:"rows_skipped"`
	RowsDegraded  int         `json:"rows_degraded"`
	RowsConflict  int         `json:"rows_conflict"`
	ErrorCount    int         `json:"error_count"`
	Status        BatchStatus `json:"status"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// NewBatch creates a running batch for a source table window.
func NewBatch(sourceTableID string, windowStart, windowEnd time.Time) Batch {
	return Batch{
		ID:            uuid.New(),
		SourceTableID: sourceTableID,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		Status:        BatchStatusRunning,
		StartedAt:     time.Now().UTC(),
	}
}

// Watermark is the per-source-table cursor of the last durably committed
// receive timestamp. It only advances when a batch seals as loaded.
type Watermark struct {
	SourceTableID string     `json:"source_table_id"`
	Position      time.Time  `json:"position"`
	LastBatchID   *uuid.UUID `json:"last_batch_id,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
