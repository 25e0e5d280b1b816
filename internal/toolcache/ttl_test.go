package toolcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLForBuiltinFragments(t *testing.T) {
	tests := []struct {
		name     string
		opName   string
		expected time.Duration
	}{
		{"config fragment", "redisadmin_config_get", 10 * time.Minute},
		{"runbook fragment", "knowledge_get_runbook", 10 * time.Minute},
		{"client list fragment", "redisadmin_client_list", 10 * time.Second},
		{"slowlog fragment", "redisadmin_slowlog", 30 * time.Second},
		{"overview fragment", "telemetry_overview", 30 * time.Second},
		{"no fragment falls back to default", "metrics_query", DefaultTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ttlFor(tt.opName, nil, 0))
		})
	}
}

func TestTTLForOverridesWinOverBuiltin(t *testing.T) {
	overrides := map[string]time.Duration{
		"config": 5 * time.Minute,
	}
	assert.Equal(t, 5*time.Minute, ttlFor("redisadmin_config_get", overrides, 0))
}

func TestTTLForOverrideResolutionIsDeterministic(t *testing.T) {
	// Both fragments match; sorted order makes "client" win every time.
	overrides := map[string]time.Duration{
		"client_list": 2 * time.Minute,
		"client":      1 * time.Minute,
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, 1*time.Minute, ttlFor("redisadmin_client_list", overrides, 0))
	}
}

func TestTTLForMatchesNormalizedName(t *testing.T) {
	// The scope hash never hides a fragment.
	assert.Equal(t, 30*time.Second, ttlFor("redisadmin_deadbeef_slowlog", nil, 0))
}

func TestTTLForCustomDefault(t *testing.T) {
	assert.Equal(t, 90*time.Second, ttlFor("metrics_query", nil, 90*time.Second))
}
