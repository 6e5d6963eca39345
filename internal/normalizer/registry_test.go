package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(Mapping{SourceTableID: "app_logs", Table: "raw_app_logs"}))

	m, ok := r.Lookup("app_logs")
	assert.True(t, ok)
	assert.Equal(t, "raw_app_logs", m.Table)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidMappings(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(Mapping{Table: "raw_x"}))
	assert.Error(t, r.Register(Mapping{SourceTableID: "x"}))

	require.NoError(t, r.Register(Mapping{SourceTableID: "x", Table: "raw_x"}))
	assert.Error(t, r.Register(Mapping{SourceTableID: "x", Table: "raw_x"}))
}

func TestDefaultRegistrySources(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"app_logs", "audit_logs", "build_logs"}, r.SourceTableIDs())

	build, ok := r.Lookup("build_logs")
	require.True(t, ok)
	assert.False(t, build.Backfilled)
	assert.Equal(t, "ci-build", build.FallbackService)

	audit, ok := r.Lookup("audit_logs")
	require.True(t, ok)
	assert.True(t, audit.IsAudit)
	assert.Equal(t, "proto_payload", audit.Fields.NestedPayload)
}
