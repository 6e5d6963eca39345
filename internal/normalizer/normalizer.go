package normalizer

import (
	"sort"
	"strings"

	"github.com/loglake/loglake/internal/domain"
)

// Normalizer is a pure, deterministic mapper from raw source records onto the
// canonical schema. It never returns an error: a record it cannot fully map is
// emitted with etl_status "degraded" and the affected fields nulled.
type Normalizer struct {
	registry *Registry
}

// New creates a normalizer over a mapping registry.
func New(registry *Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// Normalize maps one raw record onto the canonical schema. Identical input
// always yields identical output: every derived value comes from the raw
// record itself, never from the clock or map iteration order.
func (n *Normalizer) Normalize(raw domain.RawLogRecord) (rec domain.NormalizedLogRecord) {
	mapping, ok := n.registry.Lookup(raw.SourceTableID)
	if !ok {
		return degraded(raw, "unregistered source table")
	}

	defer func() {
		if r := recover(); r != nil {
			rec = degraded(raw, "normalization panic")
		}
	}()

	ingestTS := raw.ReceiveTimestamp.UTC()
	eventTS := ingestTS
	if ts, found := firstTime(raw.Payload, mapping.Fields.EventTime); found {
		eventTS = ts.UTC()
		// Clock skew upstream must not break event_ts <= ingest_ts.
		if eventTS.After(ingestTS) {
			eventTS = ingestTS
		}
	}

	severity := domain.ParseSeverity(firstString(raw.Payload, mapping.Fields.Severity))
	serviceName := firstString(raw.Payload, mapping.Fields.Service)
	if serviceName == "" {
		serviceName = mapping.FallbackService
	}
	message := firstString(raw.Payload, mapping.Fields.Message)
	traceID := firstString(raw.Payload, mapping.Fields.TraceID)
	spanID := firstString(raw.Payload, mapping.Fields.SpanID)
	httpMethod := firstString(raw.Payload, mapping.Fields.HTTPMethod)
	httpPath := firstString(raw.Payload, mapping.Fields.HTTPPath)
	httpStatus, _ := firstInt(raw.Payload, mapping.Fields.HTTPStatus)
	httpLatency, _ := firstFloat(raw.Payload, mapping.Fields.HTTPLatencyMS)
	errorType := firstString(raw.Payload, mapping.Fields.ErrorType)
	errorMessage := firstString(raw.Payload, mapping.Fields.ErrorMessage)

	labels := firstLabelMap(raw.Payload, mapping.Fields.Labels)
	environment := deriveEnvironment(labels, serviceName)

	requestID := correlationCascade(labels, requestIDLabelKeys, raw.Payload, mapping.Fields.RequestID, traceID)
	sessionID := correlationCascade(labels, sessionIDLabelKeys, raw.Payload, mapping.Fields.SessionID, "")
	conversationID := correlationCascade(labels, conversationIDLabelKeys, raw.Payload, mapping.Fields.ConversationID, "")

	piiRisk := classifyPII(freeText(raw.Payload, mapping, message, errorMessage))

	logID := domain.NewLogID(raw.SourceTableID, raw.InsertID)
	isError := severity.IsError() || errorMessage != ""
	isRequest := httpMethod != "" || httpStatus != 0

	rec = domain.NormalizedLogRecord{
		LogID:          logID,
		InsertID:       raw.InsertID,
		SourceTableID:  raw.SourceTableID,
		EventTimestamp: eventTS,
		EventDate:      domain.EventDateOf(eventTS),
		Severity:       severity,
		SeverityLevel:  severity.Level(),
		ServiceName:    serviceName,
		Message:        message,
		HTTPMethod:     httpMethod,
		HTTPPath:       httpPath,
		HTTPStatus:     httpStatus,
		HTTPLatencyMS:  httpLatency,
		TraceID:        traceID,
		SpanID:         spanID,
		ErrorType:      errorType,
		ErrorMessage:   errorMessage,
		IsError:        isError,
		IsAudit:        mapping.IsAudit,
		IsRequest:      isRequest,

		ETLStatus:          domain.ETLStatusNormalized,
		ETLPipelineVersion: domain.PipelineVersion,

		Envelope: domain.UniversalEnvelope{
			SchemaVersion: domain.EnvelopeSchemaVersion,
			EventID:       logID.String(),
			EventType:     mapping.EventType,
			EventSource:   raw.SourceTableID,
			EventTS:       eventTS,
			IngestTS:      ingestTS,
			ProjectID:     firstString(raw.Payload, mapping.Fields.ProjectID),
			Environment:   environment,
			Region:        firstString(raw.Payload, mapping.Fields.Region),
			Zone:          firstString(raw.Payload, mapping.Fields.Zone),
			Service: domain.EnvelopeService{
				Name:       serviceName,
				Revision:   firstString(raw.Payload, mapping.Fields.Revision),
				InstanceID: firstString(raw.Payload, mapping.Fields.InstanceID),
				Runtime:    firstString(raw.Payload, mapping.Fields.Runtime),
			},
			Trace: domain.EnvelopeTrace{
				TraceID: traceID,
				SpanID:  spanID,
				Sampled: traceID != "",
			},
			Actor: domain.EnvelopeActor{
				UserID:    firstString(raw.Payload, mapping.Fields.UserID),
				TenantID:  firstString(raw.Payload, mapping.Fields.TenantID),
				OrgID:     firstString(raw.Payload, mapping.Fields.OrgID),
				IP:        firstString(raw.Payload, mapping.Fields.IP),
				UserAgent: firstString(raw.Payload, mapping.Fields.UserAgent),
			},
			Lifecycle: domain.EnvelopeLifecycle{
				CreatedAt: ingestTS,
				UpdatedAt: ingestTS,
			},
			Versioning: domain.EnvelopeVersioning{
				RecordVersion: 1,
				SourceVersion: firstString(raw.Payload, mapping.Fields.SourceVersion),
				SchemaHash:    topLevelKeyHash(raw.Payload),
			},
			Labels: orderedLabels(labels),
			Tags:   mapping.Tags,
			Correlation: domain.EnvelopeCorrelation{
				RequestID:      requestID,
				SessionID:      sessionID,
				ConversationID: conversationID,
				JobID:          firstString(raw.Payload, mapping.Fields.JobID),
				ParentEventID:  firstString(raw.Payload, mapping.Fields.ParentEventID),
			},
			Privacy: domain.EnvelopePrivacy{
				PIIRisk:        piiRisk,
				RedactionState: "none",
				RetentionClass: retentionClass(mapping),
			},
		},
	}
	return rec
}

// freeText concatenates the record's free-text surfaces for PII
// classification: message, error message, and any nested payload strings.
func freeText(payload map[string]any, mapping Mapping, message, errorMessage string) string {
	parts := []string{message, errorMessage}
	if mapping.Fields.NestedPayload != "" {
		var nested []string
		flattenText(resolve(payload, mapping.Fields.NestedPayload), &nested)
		parts = append(parts, nested...)
	}
	return strings.Join(parts, "\n")
}

// orderedLabels sorts labels by key so envelope output is byte-stable.
func orderedLabels(labels map[string]string) []domain.Label {
	if len(labels) == 0 {
		return nil
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Label, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Label{Key: k, Value: labels[k]})
	}
	return out
}

func retentionClass(mapping Mapping) string {
	if mapping.IsAudit {
		return "audit"
	}
	return "standard"
}

// degraded emits the minimal deterministic record for input that could not be
// mapped. The batch error counter, not the caller, accounts for it.
func degraded(raw domain.RawLogRecord, reason string) domain.NormalizedLogRecord {
	ingestTS := raw.ReceiveTimestamp.UTC()
	logID := domain.NewLogID(raw.SourceTableID, raw.InsertID)
	return domain.NormalizedLogRecord{
		LogID:              logID,
		InsertID:           raw.InsertID,
		SourceTableID:      raw.SourceTableID,
		EventTimestamp:     ingestTS,
		EventDate:          domain.EventDateOf(ingestTS),
		Severity:           domain.SeverityDefault,
		SeverityLevel:      domain.SeverityDefault.Level(),
		ServiceName:        "unknown-service",
		Message:            reason,
		ETLStatus:          domain.ETLStatusDegraded,
		ETLPipelineVersion: domain.PipelineVersion,
		Envelope: domain.UniversalEnvelope{
			SchemaVersion: domain.EnvelopeSchemaVersion,
			EventID:       logID.String(),
			EventType:     "unknown",
			EventSource:   raw.SourceTableID,
			EventTS:       ingestTS,
			IngestTS:      ingestTS,
			Environment:   defaultEnvironment,
			Service:       domain.EnvelopeService{Name: "unknown-service"},
			Lifecycle:     domain.EnvelopeLifecycle{CreatedAt: ingestTS, UpdatedAt: ingestTS},
			Versioning:    domain.EnvelopeVersioning{RecordVersion: 1},
			Privacy: domain.EnvelopePrivacy{
				PIIRisk:        domain.PIIRiskNone,
				RedactionState: "none",
				RetentionClass: "standard",
			},
		},
	}
}
