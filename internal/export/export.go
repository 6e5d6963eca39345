// Package export renders query results as downloadable spreadsheets.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/loglake/loglake/internal/domain"
)

// Format is a supported download format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// File is one rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var columns = []string{
	"log_id", "event_timestamp", "ingest_timestamp", "source_table_id",
	"severity", "service_name", "message", "environment", "trace_id",
	"http_method", "http_path", "http_status", "http_latency_ms",
	"error_type", "error_message", "is_error", "etl_status",
}

// Export renders records in the requested format. The column set is the flat
// operational slice of the canonical schema, not the raw envelope.
func Export(records []domain.NormalizedLogRecord, format Format) (File, error) {
	stamp := time.Now().UTC().Format("20060102_150405")
	switch format {
	case FormatCSV:
		data, err := renderCSV(records)
		if err != nil {
			return File{}, err
		}
		return File{
			Name:        fmt.Sprintf("loglake_export_%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatXLSX, "":
		data, err := renderXLSX(records)
		if err != nil {
			return File{}, err
		}
		return File{
			Name:        fmt.Sprintf("loglake_export_%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return File{}, fmt.Errorf("unsupported export format %q", format)
	}
}

func renderCSV(records []domain.NormalizedLogRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(row(rec)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(records []domain.NormalizedLogRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Logs"
	f.SetSheetName("Sheet1", sheet)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, rec := range records {
		cells := row(rec)
		values := make([]any, len(cells))
		for j, v := range cells {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func row(rec domain.NormalizedLogRecord) []string {
	return []string{
		rec.LogID.String(),
		rec.EventTimestamp.UTC().Format(time.RFC3339Nano),
		rec.Envelope.IngestTS.UTC().Format(time.RFC3339Nano),
		rec.SourceTableID,
		string(rec.Severity),
		rec.ServiceName,
		rec.Message,
		rec.Envelope.Environment,
		rec.TraceID,
		rec.HTTPMethod,
		rec.HTTPPath,
		intCell(rec.HTTPStatus),
		floatCell(rec.HTTPLatencyMS),
		rec.ErrorType,
		rec.ErrorMessage,
		strconv.FormatBool(rec.IsError),
		rec.ETLStatus,
	}
}

func intCell(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func floatCell(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
