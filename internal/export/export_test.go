package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/loglake/loglake/internal/domain"
)

func sampleRecords() []domain.NormalizedLogRecord {
	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return []domain.NormalizedLogRecord{
		{
			LogID:          domain.NewLogID("app_logs", "a"),
			SourceTableID:  "app_logs",
			EventTimestamp: ts,
			Severity:       domain.SeverityError,
			ServiceName:    "checkout",
			Message:        "payment declined",
			TraceID:        "T1",
			IsError:        true,
			ETLStatus:      domain.ETLStatusNormalized,
			Envelope: domain.UniversalEnvelope{
				IngestTS:    ts.Add(2 * time.Second),
				Environment: "prod",
			},
		},
		{
			LogID:          domain.NewLogID("build_logs", "b"),
			SourceTableID:  "build_logs",
			EventTimestamp: ts.Add(time.Minute),
			Severity:       domain.SeverityDefault,
			ServiceName:    "ci-build",
			Message:        "step 2/5",
			ETLStatus:      domain.ETLStatusNormalized,
			Envelope:       domain.UniversalEnvelope{IngestTS: ts.Add(time.Minute)},
		},
	}
}

func TestExportCSV(t *testing.T) {
	file, err := Export(sampleRecords(), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, file.Name, ".csv")

	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "log_id", rows[0][0])
	assert.Equal(t, "checkout", rows[1][5])
	assert.Equal(t, "payment declined", rows[1][6])
	assert.Equal(t, "true", rows[1][15])
}

func TestExportXLSX(t *testing.T) {
	file, err := Export(sampleRecords(), FormatXLSX)
	require.NoError(t, err)

	assert.Contains(t, file.Name, ".xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Logs")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "service_name", rows[0][5])
	assert.Equal(t, "ci-build", rows[2][5])
}

func TestExportDefaultsToXLSX(t *testing.T) {
	file, err := Export(nil, "")
	require.NoError(t, err)
	assert.Contains(t, file.Name, ".xlsx")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := Export(nil, "pdf")
	assert.Error(t, err)
}
