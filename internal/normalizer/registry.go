package normalizer

import (
	"fmt"
	"sort"
)

// FieldPaths is the declarative part of a source mapping: for each canonical
// field, an ordered list of candidate payload paths (dotted, e.g.
// "http.status"). The first path that resolves wins; paths that do not resolve
// degrade to the zero value, never an error.
type FieldPaths struct {
	EventTime     []string
	Severity      []string
	Service       []string
	Message       []string
	TraceID       []string
	SpanID        []string
	HTTPMethod    []string
	HTTPPath      []string
	HTTPStatus    []string
	HTTPLatencyMS []string
	ErrorType     []string
	ErrorMessage  []string

	// Labels points at a map of string labels on the payload.
	Labels []string
	// NestedPayload points at an audit-style nested payload whose free text
	// also feeds PII classification and correlation fallbacks.
	NestedPayload string

	UserID    []string
	TenantID  []string
	OrgID     []string
	IP        []string
	UserAgent []string

	ProjectID  []string
	Region     []string
	Zone       []string
	Revision   []string
	InstanceID []string
	Runtime    []string

	RequestID      []string
	SessionID      []string
	ConversationID []string
	JobID          []string
	ParentEventID  []string

	SourceVersion []string
}

// Mapping declares how one raw source table maps onto the canonical schema.
// Adding a new source table registers a new entry; existing entries are never
// touched.
type Mapping struct {
	SourceTableID string
	// Table is the physical raw table the extractor reads. It comes from this
	// registry, never from user input.
	Table string
	// Backfilled marks sources whose history already lives in the canonical
	// store; unbackfilled sources are unified at query time instead.
	Backfilled bool
	EventType  string
	IsAudit    bool
	// FallbackService names the service when no payload path yields one.
	FallbackService string
	Tags            []string
	Fields          FieldPaths
}

// Registry holds the named source-table mappings in registration order.
type Registry struct {
	mappings map[string]Mapping
	order    []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{mappings: make(map[string]Mapping)}
}

// Register adds a mapping. Registering the same source table twice is a
// programming error.
func (r *Registry) Register(m Mapping) error {
	if m.SourceTableID == "" {
		return fmt.Errorf("mapping requires a source table id")
	}
	if m.Table == "" {
		return fmt.Errorf("mapping %s requires a physical table", m.SourceTableID)
	}
	if _, exists := r.mappings[m.SourceTableID]; exists {
		return fmt.Errorf("mapping %s already registered", m.SourceTableID)
	}
	r.mappings[m.SourceTableID] = m
	r.order = append(r.order, m.SourceTableID)
	return nil
}

// Lookup returns the mapping for a source table id.
func (r *Registry) Lookup(sourceTableID string) (Mapping, bool) {
	m, ok := r.mappings[sourceTableID]
	return m, ok
}

// List returns all mappings in registration order.
func (r *Registry) List() []Mapping {
	out := make([]Mapping, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.mappings[id])
	}
	return out
}

// SourceTableIDs returns the registered ids sorted for stable scheduling.
func (r *Registry) SourceTableIDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns the built-in source tables: structured application
// logs, text-only build logs, and audit logs with a nested payload.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	mustRegister(r, Mapping{
		SourceTableID:   "app_logs",
		Table:           "raw_app_logs",
		Backfilled:      true,
		EventType:       "app_log",
		FallbackService: "unknown-service",
		Fields: FieldPaths{
			EventTime:     []string{"timestamp", "time", "event_time"},
			Severity:      []string{"severity", "level"},
			Service:       []string{"service", "service_name", "resource.service"},
			Message:       []string{"message", "msg"},
			TraceID:       []string{"trace_id", "trace"},
			SpanID:        []string{"span_id", "span"},
			HTTPMethod:    []string{"http.method", "http_request.method"},
			HTTPPath:      []string{"http.path", "http_request.url"},
			HTTPStatus:    []string{"http.status", "http_request.status"},
			HTTPLatencyMS: []string{"http.latency_ms", "http_request.latency_ms"},
			ErrorType:     []string{"error.type", "error_type"},
			ErrorMessage:  []string{"error.message", "error_message"},
			Labels:        []string{"labels", "attributes"},
			UserID:        []string{"user_id", "context.user_id"},
			IP:            []string{"client_ip", "http.remote_ip"},
			UserAgent:     []string{"http.user_agent"},
			ProjectID:     []string{"project_id", "resource.project_id"},
			Region:        []string{"region", "resource.region"},
			Zone:          []string{"zone", "resource.zone"},
			Revision:      []string{"revision", "resource.revision"},
			InstanceID:    []string{"instance_id", "resource.instance_id"},
			Runtime:       []string{"runtime"},
			RequestID:     []string{"request_id", "context.request_id"},
			SessionID:     []string{"session_id", "context.session_id"},
			ConversationID: []string{
				"conversation_id", "context.conversation_id",
			},
			JobID:         []string{"job_id"},
			ParentEventID: []string{"parent_event_id"},
			SourceVersion: []string{"schema_version"},
		},
	})

	mustRegister(r, Mapping{
		SourceTableID:   "build_logs",
		Table:           "raw_build_logs",
		Backfilled:      false,
		EventType:       "build_log",
		FallbackService: "ci-build",
		Tags:            []string{"ci"},
		Fields: FieldPaths{
			EventTime: []string{"timestamp"},
			Severity:  []string{"severity"},
			Message:   []string{"text_payload", "text"},
			JobID:     []string{"build_id"},
			Labels:    []string{"labels"},
		},
	})

	mustRegister(r, Mapping{
		SourceTableID:   "audit_logs",
		Table:           "raw_audit_logs",
		Backfilled:      true,
		EventType:       "audit_log",
		IsAudit:         true,
		FallbackService: "audit",
		Tags:            []string{"audit"},
		Fields: FieldPaths{
			EventTime:     []string{"timestamp", "receive_time"},
			Severity:      []string{"severity"},
			Service:       []string{"proto_payload.service_name", "service"},
			Message:       []string{"proto_payload.status.message", "proto_payload.method_name"},
			TraceID:       []string{"trace_id"},
			Labels:        []string{"labels"},
			NestedPayload: "proto_payload",
			UserID:        []string{"proto_payload.authentication_info.principal_email"},
			IP:            []string{"proto_payload.request_metadata.caller_ip"},
			UserAgent:     []string{"proto_payload.request_metadata.caller_supplied_user_agent"},
			ProjectID:     []string{"resource.project_id"},
			RequestID:     []string{"proto_payload.request_id"},
			SessionID:     []string{"proto_payload.session_id"},
			ParentEventID: []string{"operation.parent_id"},
		},
	})

	return r
}

func mustRegister(r *Registry, m Mapping) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}
