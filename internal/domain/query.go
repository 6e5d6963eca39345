package domain

// QueryParams represents validated filtering options for canonical log queries.
type QueryParams struct {
	// Hours is the lookback window; bounded to [1, 168] at build time.
	Hours int
	// MinSeverity filters to records at or above the severity's ordinal.
	MinSeverity Severity
	// ServiceName filters to one service when non-empty.
	ServiceName string
	// Search is a case-insensitive free-text match on the message field.
	Search string
	// SourceTables restricts results to specific source tables.
	SourceTables []string
	// Limit bounds the page size; bounded to [1, 1000] at build time.
	Limit int
}

// ServiceStatsParams selects a window for hourly per-service aggregates.
type ServiceStatsParams struct {
	Hours       int
	ServiceName string
}
