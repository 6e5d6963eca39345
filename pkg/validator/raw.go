// Package validator checks raw source rows before they enter the pipeline.
package validator

import (
	"strings"

	"github.com/loglake/loglake/internal/domain"
)

// ValidateRaw reports whether a raw record carries the minimum the pipeline
// depends on. A failing record is skipped and counted, never fatal.
func ValidateRaw(rec domain.RawLogRecord) error {
	if strings.TrimSpace(rec.InsertID) == "" {
		return &domain.MalformedRecordError{
			SourceTableID: rec.SourceTableID,
			InsertID:      rec.InsertID,
			Reason:        "missing insert id",
		}
	}
	if rec.ReceiveTimestamp.IsZero() {
		return &domain.MalformedRecordError{
			SourceTableID: rec.SourceTableID,
			InsertID:      rec.InsertID,
			Reason:        "missing receive timestamp",
		}
	}
	if rec.Payload == nil {
		return &domain.MalformedRecordError{
			SourceTableID: rec.SourceTableID,
			InsertID:      rec.InsertID,
			Reason:        "empty payload",
		}
	}
	return nil
}
