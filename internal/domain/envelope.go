package domain

import "time"

// PIIRisk is a coarse heuristic classification of likely sensitive content.
type PIIRisk string

const (
	PIIRiskNone     PIIRisk = "none"
	PIIRiskLow      PIIRisk = "low"
	PIIRiskModerate PIIRisk = "moderate"
	PIIRiskHigh     PIIRisk = "high"
)

var piiRiskOrder = map[PIIRisk]int{
	PIIRiskNone:     0,
	PIIRiskLow:      1,
	PIIRiskModerate: 2,
	PIIRiskHigh:     3,
}

// AtLeast reports whether the risk is at or above the other tier.
func (p PIIRisk) AtLeast(other PIIRisk) bool {
	return piiRiskOrder[p] >= piiRiskOrder[other]
}

// Label is one ordered key/value pair carried on the envelope.
type Label struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UniversalEnvelope is the cross-cutting metadata attached to every canonical
// record, independent of the raw source shape that produced it.
type UniversalEnvelope struct {
	SchemaVersion string `json:"schema_version"`
	EventID       string `json:"event_id"`
	EventType     string `json:"event_type"`
	EventSource   string `json:"event_source"`

	EventTS  time.Time `json:"event_ts"`
	IngestTS time.Time `json:"ingest_ts"`

	ProjectID   string `json:"project_id,omitempty"`
	Environment string `json:"environment"`
	Region      string `json:"region,omitempty"`
	Zone        string `json:"zone,omitempty"`

	Service     EnvelopeService     `json:"service"`
	Trace       EnvelopeTrace       `json:"trace"`
	Actor       EnvelopeActor       `json:"actor"`
	Lifecycle   EnvelopeLifecycle   `json:"lifecycle"`
	Versioning  EnvelopeVersioning  `json:"versioning"`
	Labels      []Label             `json:"labels,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Correlation EnvelopeCorrelation `json:"correlation"`
	Privacy     EnvelopePrivacy     `json:"privacy"`
}

// EnvelopeService identifies the emitting service instance.
type EnvelopeService struct {
	Name       string `json:"name"`
	Revision   string `json:"revision,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	Runtime    string `json:"runtime,omitempty"`
}

// EnvelopeTrace carries distributed tracing identifiers.
type EnvelopeTrace struct {
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
	Sampled bool   `json:"sampled"`
}

// EnvelopeActor describes who or what triggered the event.
type EnvelopeActor struct {
	UserID    string `json:"user_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	OrgID     string `json:"org_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// EnvelopeLifecycle tracks record lifecycle timestamps.
type EnvelopeLifecycle struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	IsDeleted bool       `json:"is_deleted"`
}

// EnvelopeVersioning records pipeline and schema versions for reprocessing.
type EnvelopeVersioning struct {
	RecordVersion int    `json:"record_version"`
	SourceVersion string `json:"source_version,omitempty"`
	SchemaHash    string `json:"schema_hash,omitempty"`
}

// EnvelopeCorrelation groups identifiers used to stitch related events.
type EnvelopeCorrelation struct {
	RequestID      string `json:"request_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	JobID          string `json:"job_id,omitempty"`
	ParentEventID  string `json:"parent_event_id,omitempty"`
}

// EnvelopePrivacy carries the heuristic privacy classification.
type EnvelopePrivacy struct {
	PIIRisk        PIIRisk `json:"pii_risk"`
	RedactionState string  `json:"redaction_state"`
	RetentionClass string  `json:"retention_class"`
}
