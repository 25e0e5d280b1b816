package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
pool:
  servers:
    - name: query-tools
      type: stdio
      command: dbpilot-query-server
      args: ["--readonly"]
      capabilities: [repos]
    - name: infra
      type: sse
      url: https://infra.example.com/mcp
      headers:
        Authorization: Bearer ${INFRA_TOKEN}
cache:
  enabled: true
  defaultTTLSeconds: 120
  overridesSeconds:
    config: 600
  redis:
    addr: localhost:6379
    db: 2
runbooks:
  dir: /etc/dbpilot/runbooks
instances:
  - id: pg-main
    name: Main Postgres
    kind: postgres
    extensions:
      metrics:
        prometheusURL: http://prom:9090
  - id: ""
    name: nameless
  - id: pg-main
    name: duplicate
  - id: redis-cache
    name: Cache
    kind: redis
    adminDSN: redis://admin@localhost:6379/0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Pool.Servers, 2)
	assert.Equal(t, "query-tools", cfg.Pool.Servers[0].Name)
	assert.Equal(t, []string{"repos"}, cfg.Pool.Servers[0].Capabilities)
	assert.Equal(t, "Bearer ${INFRA_TOKEN}", cfg.Pool.Servers[1].Headers["Authorization"],
		"placeholders expand at connect time, not load time")

	// Empty and duplicate instance IDs are dropped, valid ones kept in order.
	require.Len(t, cfg.Instances, 2)
	assert.Equal(t, "pg-main", cfg.Instances[0].ID)
	assert.Equal(t, "redis-cache", cfg.Instances[1].ID)

	assert.Equal(t, "/etc/dbpilot/runbooks", cfg.Runbooks.Dir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "{unclosed"))
	assert.Error(t, err)
}

func TestLoadRejectsBadServers(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		_, err := Load(writeConfig(t, "pool:\n  servers:\n    - type: stdio\n      command: x\n"))
		assert.Error(t, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
pool:
  servers:
    - name: a
      type: stdio
      command: x
    - name: a
      type: stdio
      command: y
`))
		assert.Error(t, err)
	})
}

func TestInstanceLookup(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	scope, ok := cfg.Instance("redis-cache")
	require.True(t, ok)
	assert.Equal(t, "redis", scope.Kind)
	assert.NotEmpty(t, scope.AdminDSN)

	_, ok = cfg.Instance("ghost")
	assert.False(t, ok)
}

func TestToolCacheConfigConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	tc := cfg.Cache.ToolCacheConfig()
	assert.True(t, tc.Enabled)
	assert.Equal(t, 2*time.Minute, tc.DefaultTTL)
	assert.Equal(t, 10*time.Minute, tc.Overrides["config"])
}

func TestProviderConfigFromLoadedInstance(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	scope, ok := cfg.Instance("pg-main")
	require.True(t, ok)
	assert.Equal(t, "http://prom:9090", scope.ProviderConfig("metrics")["prometheusURL"])
}
