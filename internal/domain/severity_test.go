package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		raw  string
		want Severity
	}{
		{"ERROR", SeverityError},
		{"error", SeverityError},
		{"  Warn ", SeverityWarning},
		{"warning", SeverityWarning},
		{"fatal", SeverityCritical},
		{"panic", SeverityEmergency},
		{"trace", SeverityDebug},
		{"severe", SeverityError},
		{"", SeverityDefault},
		{"verbose", SeverityDefault},
		{"500", SeverityError},
		{"250", SeverityInfo},
		{"0", SeverityDefault},
		{"900", SeverityEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.raw))
		})
	}
}

func TestLookupSeverityReportsUnknownSpellings(t *testing.T) {
	sev, ok := LookupSeverity("LOUD")
	assert.False(t, ok)
	assert.Equal(t, SeverityDefault, sev)

	sev, ok = LookupSeverity("warn")
	assert.True(t, ok)
	assert.Equal(t, SeverityWarning, sev)

	// Empty means unset, not unknown.
	_, ok = LookupSeverity("")
	assert.True(t, ok)

	// Numeric spellings are recognized even when they land on DEFAULT.
	sev, ok = LookupSeverity("0")
	assert.True(t, ok)
	assert.Equal(t, SeverityDefault, sev)
}

func TestSeverityOrdinals(t *testing.T) {
	assert.Equal(t, 0, SeverityDefault.Level())
	assert.Equal(t, 200, SeverityInfo.Level())
	assert.Equal(t, 400, SeverityWarning.Level())
	assert.Equal(t, 500, SeverityError.Level())
	assert.Equal(t, 800, SeverityEmergency.Level())

	// Unknown severities sit below everything.
	assert.Equal(t, 0, Severity("LOUD").Level())
}

func TestSeverityErrorThreshold(t *testing.T) {
	assert.False(t, SeverityWarning.IsError())
	assert.True(t, SeverityError.IsError())
	assert.True(t, SeverityCritical.IsError())
	assert.True(t, SeverityEmergency.IsError())
}
