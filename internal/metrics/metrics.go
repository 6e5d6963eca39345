package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch lifecycle metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_batches_total",
			Help: "Total number of ingestion batches by terminal status",
		},
		[]string{"source_table", "status"},
	)

	RecordsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_records_extracted_total",
			Help: "Total raw records extracted per source table",
		},
		[]string{"source_table"},
	)

	RecordsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_records_skipped_total",
			Help: "Total malformed raw records skipped per source table",
		},
		[]string{"source_table"},
	)

	// Normalization metrics
	RecordsNormalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_records_normalized_total",
			Help: "Total records normalized by etl status",
		},
		[]string{"source_table", "status"},
	)

	NormalizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loglake_normalization_duration_seconds",
			Help:    "Duration of one record normalization in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Loader metrics
	RecordsLoadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_records_loaded_total",
			Help: "Total canonical records durably committed per source table",
		},
		[]string{"source_table"},
	)

	LoaderConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_loader_conflicts_total",
			Help: "Total redelivered records absorbed as idempotent no-ops",
		},
		[]string{"source_table"},
	)

	// Query surface metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglake_queries_total",
			Help: "Total canonical queries by outcome",
		},
		[]string{"outcome"},
	)

	QueryScanEstimateBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loglake_query_scan_estimate_bytes",
			Help:    "Estimated bytes scanned per accepted query",
			Buckets: prometheus.ExponentialBuckets(1<<20, 4, 10),
		},
	)
)
