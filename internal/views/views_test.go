package views

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglake/loglake/internal/domain"
	"github.com/loglake/loglake/internal/normalizer"
)

func TestUnifiedViewUnionsUnbackfilledSources(t *testing.T) {
	m := NewManager(nil, normalizer.DefaultRegistry())
	sql := m.UnifiedViewSQL()

	assert.Contains(t, sql, "CREATE OR REPLACE VIEW canonical_logs_unified")
	assert.Contains(t, sql, "FROM canonical_logs")
	// build_logs is not backfilled, so its raw tail joins at query time.
	assert.Contains(t, sql, "UNION ALL")
	assert.Contains(t, sql, "FROM raw_build_logs r")
	assert.Contains(t, sql, "'build_logs' AS source_table_id")
	// Backfilled sources live only in the canonical branch.
	assert.NotContains(t, sql, "FROM raw_app_logs")
	assert.NotContains(t, sql, "FROM raw_audit_logs")
}

func TestUnifiedViewRawTailBoundedByWatermark(t *testing.T) {
	m := NewManager(nil, normalizer.DefaultRegistry())
	sql := m.UnifiedViewSQL()

	assert.Contains(t, sql, "w.source_table_id = 'build_logs'")
	assert.Contains(t, sql, "r.receive_timestamp > COALESCE(")
}

func TestUnifiedViewRawTailProjection(t *testing.T) {
	m := NewManager(nil, normalizer.DefaultRegistry())
	sql := m.UnifiedViewSQL()

	assert.Contains(t, sql, "r.payload->>'text_payload'")
	assert.Contains(t, sql, "'ci-build'")
}

// The raw tail derives its log_id with the same version 5 UUID scheme the
// loader uses, so a row keeps one identity before and after its batch loads.
func TestUnifiedViewRawTailLogIDMatchesLoader(t *testing.T) {
	m := NewManager(nil, normalizer.DefaultRegistry())
	sql := m.UnifiedViewSQL()

	assert.Contains(t, sql, fmt.Sprintf(
		"uuid_generate_v5('%s'::uuid, 'build_logs' || '/' || r.insert_id) AS log_id",
		domain.LogIDNamespace,
	))
	assert.Equal(t, uuid.Version(5), domain.NewLogID("build_logs", "b-1").Version())
}

func TestUnifiedViewAllBackfilledHasNoUnion(t *testing.T) {
	registry := normalizer.NewRegistry()
	require.NoError(t, registry.Register(normalizer.Mapping{
		SourceTableID: "app_logs",
		Table:         "raw_app_logs",
		Backfilled:    true,
	}))

	sql := NewManager(nil, registry).UnifiedViewSQL()
	assert.NotContains(t, sql, "UNION ALL")
}

func TestPayloadTextExpr(t *testing.T) {
	assert.Equal(t, "r.payload->>'message'", payloadTextExpr("message"))
	assert.Equal(t,
		"r.payload->'proto_payload'->'status'->>'message'",
		payloadTextExpr("proto_payload.status.message"),
	)
}

func TestQuoteLiteralEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
	assert.False(t, strings.Contains(quoteLiteral("plain"), `"`))
}
