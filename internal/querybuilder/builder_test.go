package querybuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglake/loglake/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestBuildAlwaysBoundsPartitionColumn(t *testing.T) {
	b := New(WithClock(fixedClock))

	q, err := b.Build(domain.QueryParams{Hours: 24})
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "event_date >= $1")
	assert.Contains(t, q.SQL, "event_date <= $2")
	assert.Contains(t, q.SQL, "event_timestamp >= $3")
	assert.Contains(t, q.SQL, "event_timestamp <= $4")
	assert.Contains(t, q.SQL, "ORDER BY event_timestamp DESC")

	// A 24h window ending at noon touches exactly two partition days.
	assert.Equal(t, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), q.Args[0])
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), q.Args[1])
	assert.Equal(t, fixedNow.Add(-24*time.Hour), q.From)
	assert.Equal(t, fixedNow, q.To)
}

func TestBuildAppliesFilters(t *testing.T) {
	b := New(WithClock(fixedClock))

	q, err := b.Build(domain.QueryParams{
		Hours:        6,
		MinSeverity:  domain.SeverityError,
		ServiceName:  "checkout",
		Search:       "declined",
		SourceTables: []string{"app_logs"},
		Limit:        50,
	})
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "severity_level >= $5")
	assert.Contains(t, q.SQL, "service_name = $6")
	assert.Contains(t, q.SQL, "message ILIKE $7")
	assert.Contains(t, q.SQL, "source_table_id = ANY($8)")
	assert.Contains(t, q.SQL, "LIMIT $9")

	assert.Equal(t, 500, q.Args[4])
	assert.Equal(t, "checkout", q.Args[5])
	assert.Equal(t, "%declined%", q.Args[6])
	assert.Equal(t, []string{"app_logs"}, q.Args[7])
	assert.Equal(t, 50, q.Args[8])
}

func TestBuildDefaults(t *testing.T) {
	b := New(WithClock(fixedClock), WithDefaultLimit(25))

	q, err := b.Build(domain.QueryParams{})
	require.NoError(t, err)

	// Default window is 24h, default limit comes from the option.
	assert.Equal(t, fixedNow.Add(-24*time.Hour), q.From)
	assert.Equal(t, 25, q.Args[len(q.Args)-1])
}

func TestBuildRejectsOutOfBoundsParams(t *testing.T) {
	b := New(WithClock(fixedClock))

	_, err := b.Build(domain.QueryParams{Hours: 169})
	assert.Error(t, err)

	_, err = b.Build(domain.QueryParams{Hours: -1})
	assert.Error(t, err)

	_, err = b.Build(domain.QueryParams{Limit: 1001})
	assert.Error(t, err)

	_, err = b.Build(domain.QueryParams{MinSeverity: "LOUD"})
	assert.Error(t, err)
}

func TestBuildHonorsConfiguredLookbackCap(t *testing.T) {
	b := New(WithClock(fixedClock), WithMaxLookbackHours(48))

	_, err := b.Build(domain.QueryParams{Hours: 72})
	assert.Error(t, err)

	_, err = b.Build(domain.QueryParams{Hours: 48})
	assert.NoError(t, err)
}

func TestBuildEscapesSearchWildcards(t *testing.T) {
	b := New(WithClock(fixedClock))

	q, err := b.Build(domain.QueryParams{Search: "100%_done"})
	require.NoError(t, err)

	assert.Equal(t, `%100\%\_done%`, q.Args[4])
}

func TestBuildTraceQuery(t *testing.T) {
	b := New(WithClock(fixedClock))

	q, err := b.BuildTraceQuery("T1", 24)
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "trace_id = $5")
	assert.Contains(t, q.SQL, "ORDER BY event_timestamp ASC")
	assert.Equal(t, "T1", q.Args[4])

	_, err = b.BuildTraceQuery("  ", 24)
	assert.Error(t, err)

	_, err = b.BuildTraceQuery("T1", 500)
	assert.Error(t, err)
}
