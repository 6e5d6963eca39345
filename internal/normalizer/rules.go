package normalizer

import (
	"regexp"
	"strings"

	"github.com/loglake/loglake/internal/domain"
)

// environmentRule maps a service-name suffix onto an environment.
type environmentRule struct {
	suffixes []string
	env      string
}

// environmentRules are checked in order after the explicit label cascade.
var environmentRules = []environmentRule{
	{suffixes: []string{"-dev", "_dev"}, env: "dev"},
	{suffixes: []string{"-staging", "_staging"}, env: "staging"},
	{suffixes: []string{"-prod", "_prod"}, env: "prod"},
}

const defaultEnvironment = "prod"

// environmentLabelKeys are the explicit label spellings checked first.
var environmentLabelKeys = []string{"env", "environment"}

// deriveEnvironment resolves the deployment environment: explicit label first,
// then service-name suffix inference, then the prod default.
func deriveEnvironment(labels map[string]string, serviceName string) string {
	for _, key := range environmentLabelKeys {
		if v, ok := labels[key]; ok && v != "" {
			return v
		}
	}
	for _, rule := range environmentRules {
		for _, suffix := range rule.suffixes {
			if strings.HasSuffix(serviceName, suffix) {
				return rule.env
			}
		}
	}
	return defaultEnvironment
}

// piiRule binds one compiled pattern to a risk tier.
type piiRule struct {
	tier    domain.PIIRisk
	pattern *regexp.Regexp
}

// piiRules are evaluated tier by tier, highest first, so the highest matching
// tier always wins regardless of where in the text a match occurs.
var piiRules = []piiRule{
	{domain.PIIRiskHigh, regexp.MustCompile(`(?i)\b(password|passwd|secret|credential)\b`)},
	{domain.PIIRiskHigh, regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|refresh[_-]?token|token)\b`)},
	{domain.PIIRiskHigh, regexp.MustCompile(`(?i)\bbearer\s+\S+`)},
	{domain.PIIRiskHigh, regexp.MustCompile(`(?i)\bauthorization\s*:`)},
	{domain.PIIRiskHigh, regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)},
	{domain.PIIRiskHigh, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{domain.PIIRiskModerate, regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{domain.PIIRiskModerate, regexp.MustCompile(`\+?\d{1,3}[ .-]?\(?\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{3,4}\b`)},
	{domain.PIIRiskModerate, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{domain.PIIRiskLow, regexp.MustCompile(`(?i)\b(user|account|customer)[_-]?id\b`)},
	{domain.PIIRiskLow, regexp.MustCompile(`(?i)\buid\s*[:=]`)},
}

// classifyPII returns the highest risk tier matched anywhere in the text.
// Rules are ordered high to moderate to low; the first match wins and a later
// lower-tier match can never downgrade the result.
func classifyPII(text string) domain.PIIRisk {
	if text == "" {
		return domain.PIIRiskNone
	}
	for _, rule := range piiRules {
		if rule.pattern.MatchString(text) {
			return rule.tier
		}
	}
	return domain.PIIRiskNone
}

// correlationCascade derives one correlation id: explicit label variants
// first, then payload paths, then a named fallback already derived elsewhere
// on the record. First non-empty wins.
func correlationCascade(labels map[string]string, labelKeys []string, payload map[string]any, paths []string, fallback string) string {
	for _, key := range labelKeys {
		if v, ok := labels[key]; ok && v != "" {
			return v
		}
	}
	if v := firstString(payload, paths); v != "" {
		return v
	}
	return fallback
}

// Label spellings accepted for each correlation sub-field.
var (
	requestIDLabelKeys      = []string{"request_id", "requestId", "req_id"}
	sessionIDLabelKeys      = []string{"session_id", "sessionId"}
	conversationIDLabelKeys = []string{"conversation_id", "conversationId", "convo_id"}
)
