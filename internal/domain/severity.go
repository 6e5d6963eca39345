package domain

import (
	"strconv"
	"strings"
)

// Severity is a canonical log severity name with a total order of ordinals.
type Severity string

const (
	SeverityDefault   Severity = "DEFAULT"
	SeverityDebug     Severity = "DEBUG"
	SeverityInfo      Severity = "INFO"
	SeverityNotice    Severity = "NOTICE"
	SeverityWarning   Severity = "WARNING"
	SeverityError     Severity = "ERROR"
	SeverityCritical  Severity = "CRITICAL"
	SeverityAlert     Severity = "ALERT"
	SeverityEmergency Severity = "EMERGENCY"
)

// severityLevels maps each canonical severity to its ordinal.
var severityLevels = map[Severity]int{
	SeverityDefault:   0,
	SeverityDebug:     100,
	SeverityInfo:      200,
	SeverityNotice:    300,
	SeverityWarning:   400,
	SeverityError:     500,
	SeverityCritical:  600,
	SeverityAlert:     700,
	SeverityEmergency: 800,
}

// ErrorThresholdLevel is the ordinal at and above which a record counts as an error.
const ErrorThresholdLevel = 500

// Level returns the ordinal for the severity, or 0 for unknown values.
func (s Severity) Level() int {
	return severityLevels[s]
}

// IsError reports whether the severity is at or above the error threshold.
func (s Severity) IsError() bool {
	return s.Level() >= ErrorThresholdLevel
}

var severityAliases = map[string]Severity{
	"trace":     SeverityDebug,
	"debug":     SeverityDebug,
	"info":      SeverityInfo,
	"notice":    SeverityNotice,
	"warn":      SeverityWarning,
	"warning":   SeverityWarning,
	"err":       SeverityError,
	"error":     SeverityError,
	"severe":    SeverityError,
	"fatal":     SeverityCritical,
	"critical":  SeverityCritical,
	"crit":      SeverityCritical,
	"alert":     SeverityAlert,
	"emergency": SeverityEmergency,
	"panic":     SeverityEmergency,
}

// ParseSeverity maps upstream severity spellings (names or numeric syslog-style
// levels) onto the canonical set. Unrecognized values map to DEFAULT.
func ParseSeverity(raw string) Severity {
	sev, _ := LookupSeverity(raw)
	return sev
}

// LookupSeverity maps a severity spelling onto the canonical set and reports
// whether the spelling was recognized. Normalization uses ParseSeverity and
// absorbs unknown values as DEFAULT; caller-facing surfaces use the ok result
// to reject them instead.
func LookupSeverity(raw string) (Severity, bool) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return SeverityDefault, true
	}
	if sev, ok := severityAliases[trimmed]; ok {
		return sev, true
	}
	if canonical := Severity(strings.ToUpper(trimmed)); canonical.known() {
		return canonical, true
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return severityFromNumber(n), true
	}
	return SeverityDefault, false
}

func (s Severity) known() bool {
	_, ok := severityLevels[s]
	return ok
}

func severityFromNumber(n int) Severity {
	switch {
	case n <= 0:
		return SeverityDefault
	case n < 200:
		return SeverityDebug
	case n < 300:
		return SeverityInfo
	case n < 400:
		return SeverityNotice
	case n < 500:
		return SeverityWarning
	case n < 600:
		return SeverityError
	case n < 700:
		return SeverityCritical
	case n < 800:
		return SeverityAlert
	default:
		return SeverityEmergency
	}
}
