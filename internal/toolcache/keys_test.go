package toolcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOperationName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips scope hash segment",
			input:    "metrics_1a2b3c4d_query",
			expected: "metrics_query",
		},
		{
			name:     "leaves unscoped names alone",
			input:    "knowledge_list_runbooks",
			expected: "knowledge_list_runbooks",
		},
		{
			name:     "ignores segments of the wrong width",
			input:    "metrics_1a2b_query",
			expected: "metrics_1a2b_query",
		},
		{
			name:     "ignores non hex segments",
			input:    "metrics_1a2b3c4z_query",
			expected: "metrics_1a2b3c4z_query",
		},
		{
			name:     "empty name",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeOperationName(tt.input))
		})
	}
}

func TestNormalizeOperationNameScopeInvariance(t *testing.T) {
	// Two routers bound to the same logical instance embed different hashes
	// only when the scope identity differs, but a restart must never change
	// the cache identity of a name.
	a := NormalizeOperationName("redisadmin_deadbeef_slowlog")
	b := NormalizeOperationName("redisadmin_cafe0123_slowlog")
	assert.Equal(t, a, b)
	assert.Equal(t, "redisadmin_slowlog", a)
}

func TestCanonicalArgs(t *testing.T) {
	empty, err := CanonicalArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)

	empty, err = CanonicalArgs(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)

	// encoding/json sorts map keys, so insertion order never matters.
	first, err := CanonicalArgs(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	second, err := CanonicalArgs(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, `{"a":1,"b":2}`, first)
}

func TestBuildKeyIgnoresScopeHash(t *testing.T) {
	args := map[string]interface{}{"query": "up"}

	key1, err := buildKey("pg-main", "metrics_11111111_query", args)
	require.NoError(t, err)
	key2, err := buildKey("pg-main", "metrics_22222222_query", args)
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
	assert.Contains(t, key1, "dbpilot:tools:pg-main:metrics_query:")
}

func TestBuildKeySeparatesScopesAndArgs(t *testing.T) {
	args := map[string]interface{}{"query": "up"}

	base, err := buildKey("pg-main", "metrics_query", args)
	require.NoError(t, err)

	otherScope, err := buildKey("pg-replica", "metrics_query", args)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherScope)

	otherArgs, err := buildKey("pg-main", "metrics_query", map[string]interface{}{"query": "down"})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherArgs)
}
