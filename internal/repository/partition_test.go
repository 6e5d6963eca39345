package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPartitionName(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "canonical_logs_p20260314", PartitionName(date))

	// Non-midnight input still names the partition by its UTC date.
	assert.Equal(t, "canonical_logs_p20260314", PartitionName(date.Add(23*time.Hour)))
}

func TestPartitionDateRoundTrip(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	parsed, ok := partitionDate(PartitionName(date))
	assert.True(t, ok)
	assert.Equal(t, date, parsed)

	_, ok = partitionDate("canonical_logs_default")
	assert.False(t, ok)

	_, ok = partitionDate("some_other_table")
	assert.False(t, ok)
}
