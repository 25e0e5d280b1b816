package diagnostics

import (
	"context"
	"testing"

	"dbpilot/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresScope(t *testing.T) {
	_, err := New(provider.Deps{})
	assert.Error(t, err)
}

func TestHostResolution(t *testing.T) {
	t.Run("defaults to the scope id", func(t *testing.T) {
		p, err := New(provider.Deps{Scope: &provider.Scope{ID: "pg-main"}})
		require.NoError(t, err)
		assert.Equal(t, "pg-main", p.(*Provider).host)
	})

	t.Run("configured host wins", func(t *testing.T) {
		scope := &provider.Scope{
			ID: "pg-main",
			Extensions: map[string]map[string]interface{}{
				"diagnostics": {"host": "db1.internal"},
			},
		}
		p, err := New(provider.Deps{Scope: scope})
		require.NoError(t, err)
		assert.Equal(t, "db1.internal", p.(*Provider).host)
	})
}

func TestOperationsAreStable(t *testing.T) {
	p, err := New(provider.Deps{Scope: &provider.Scope{ID: "pg-main"}})
	require.NoError(t, err)

	first := p.Operations()
	second := p.Operations()
	require.Equal(t, first, second)

	names := make([]string, 0, len(first))
	for _, op := range first {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"ping", "disk_usage", "socket_summary"}, names)
}

func TestInvokeRejectsUnknownCommand(t *testing.T) {
	p, err := New(provider.Deps{Scope: &provider.Scope{ID: "pg-main"}})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), "rm_rf", nil)
	assert.Error(t, err, "anything outside the allowlist must be refused")
}

func TestPingArgsPinTheHost(t *testing.T) {
	// The argument vector is fixed apart from the host; LLM-supplied
	// arguments never reach the binary.
	args := commands["ping"].args("db1.internal")
	assert.Equal(t, []string{"-c", "3", "-W", "2", "db1.internal"}, args)
}
