package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopProvider struct{}

func (nopProvider) ID() string                       { return "nop" }
func (nopProvider) Capabilities() []Capability       { return nil }
func (nopProvider) Operations() []Operation          { return nil }
func (nopProvider) Initialize(context.Context) error { return nil }
func (nopProvider) Invoke(context.Context, string, map[string]interface{}) (*Result, error) {
	return Success(nil), nil
}
func (nopProvider) Close() error { return nil }

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	factory := func(Deps) (Provider, error) { return nopProvider{}, nil }

	require.NoError(t, registry.Register("metrics", factory))
	assert.Error(t, registry.Register("metrics", factory), "duplicate registration must fail")

	got, ok := registry.Lookup("metrics")
	require.True(t, ok)
	p, err := got(Deps{})
	require.NoError(t, err)
	assert.Equal(t, "nop", p.ID())

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)

	require.NoError(t, registry.Register("logs", factory))
	assert.ElementsMatch(t, []string{"metrics", "logs"}, registry.Names())
}
