package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglake/loglake/internal/domain"
)

func TestValidateRaw(t *testing.T) {
	valid := domain.RawLogRecord{
		SourceTableID:    "app_logs",
		InsertID:         "ins-1",
		ReceiveTimestamp: time.Now(),
		Payload:          map[string]any{"message": "ok"},
	}
	assert.NoError(t, ValidateRaw(valid))

	tests := []struct {
		name   string
		mutate func(*domain.RawLogRecord)
		reason string
	}{
		{"missing insert id", func(r *domain.RawLogRecord) { r.InsertID = "  " }, "missing insert id"},
		{"zero receive timestamp", func(r *domain.RawLogRecord) { r.ReceiveTimestamp = time.Time{} }, "missing receive timestamp"},
		{"nil payload", func(r *domain.RawLogRecord) { r.Payload = nil }, "empty payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)

			err := ValidateRaw(rec)
			var malformed *domain.MalformedRecordError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.reason, malformed.Reason)
		})
	}
}
