package redisadmin

import (
	"context"
	"fmt"
	"testing"

	"dbpilot/internal/provider"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisScope(dsn string) *provider.Scope {
	return &provider.Scope{ID: "redis-cache", Name: "Cache", Kind: "redis", AdminDSN: dsn}
}

func TestNewValidation(t *testing.T) {
	_, err := New(provider.Deps{})
	assert.Error(t, err)

	_, err = New(provider.Deps{Scope: &provider.Scope{ID: "redis-cache", Kind: "redis"}})
	assert.Error(t, err, "a missing admin DSN must refuse construction")
}

func TestInitializeAndClose(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := New(provider.Deps{Scope: redisScope(fmt.Sprintf("redis://%s/0", mr.Addr()))})
	require.NoError(t, err)

	require.NoError(t, p.Initialize(context.Background()))
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "repeated close is harmless")
}

func TestInitializeBadDSN(t *testing.T) {
	p, err := New(provider.Deps{Scope: redisScope("not-a-dsn")})
	require.NoError(t, err)
	assert.Error(t, p.Initialize(context.Background()))
}

func TestInitializeUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	dsn := fmt.Sprintf("redis://%s/0", mr.Addr())
	mr.Close()

	p, err := New(provider.Deps{Scope: redisScope(dsn)})
	require.NoError(t, err)
	assert.Error(t, p.Initialize(context.Background()))
}

func TestInvokeBeforeInitialize(t *testing.T) {
	p, err := New(provider.Deps{Scope: redisScope("redis://localhost:6379")})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), "client_list", nil)
	assert.Error(t, err)
}

func TestOperationsAndCapabilities(t *testing.T) {
	p, err := New(provider.Deps{Scope: redisScope("redis://localhost:6379")})
	require.NoError(t, err)

	names := make([]string, 0)
	for _, op := range p.Operations() {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"client_list", "config_get", "slowlog"}, names)

	assert.ElementsMatch(t,
		[]provider.Capability{provider.CapabilityDiagnostics, provider.CapabilityMetrics},
		p.Capabilities())
}
