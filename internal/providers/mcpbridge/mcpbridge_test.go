package mcpbridge

import (
	"context"
	"errors"
	"testing"

	"dbpilot/internal/pool"
	"dbpilot/internal/provider"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport stands in for a pooled MCP client.
type fakeTransport struct {
	result  *mcp.CallToolResult
	callErr error

	closeCount int
	lastTool   string
	lastArgs   map[string]interface{}
}

func (f *fakeTransport) Initialize(context.Context) error { return nil }

func (f *fakeTransport) Close() error {
	f.closeCount++
	return nil
}

func (f *fakeTransport) ListTools(context.Context) ([]mcp.Tool, error) { return nil, nil }

func (f *fakeTransport) CallTool(_ context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	f.lastTool = name
	f.lastArgs = args
	return f.result, f.callErr
}

func (f *fakeTransport) Ping(context.Context) error { return nil }

func textResult(isError bool, texts ...string) *mcp.CallToolResult {
	result := &mcp.CallToolResult{IsError: isError}
	for _, text := range texts {
		result.Content = append(result.Content, mcp.TextContent{Type: "text", Text: text})
	}
	return result
}

func bridgedProvider(transport *fakeTransport, cfg pool.ServerConfig) *Provider {
	p := New(nil, cfg.Name)
	p.conn = &pool.Connection{
		Name:   cfg.Name,
		Client: transport,
		Tools: []mcp.Tool{
			{Name: "run_query", Description: "Run a query", InputSchema: mcp.ToolInputSchema{Type: "object"}},
			{Name: "explain", Description: "Explain a plan"},
		},
		Config: cfg,
	}
	return p
}

func TestInitializeFailsWhenServerNotConnected(t *testing.T) {
	p := New(pool.New(nil), "ghost")
	assert.Error(t, p.Initialize(context.Background()))
}

func TestIDIsSanitized(t *testing.T) {
	p := New(nil, "Query-Tools srv")
	assert.Equal(t, "mcp_querytoolssrv", p.ID())
}

func TestOperationsMirrorDiscoveredTools(t *testing.T) {
	cfg := pool.ServerConfig{Name: "alpha", Capabilities: []string{"repos", "utilities"}}
	p := bridgedProvider(&fakeTransport{}, cfg)

	ops := p.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "run_query", ops[0].Name)
	assert.Equal(t, provider.Capability("repos"), ops[0].Capability, "first configured tag applies")

	caps := p.Capabilities()
	assert.Equal(t, []provider.Capability{"repos", "utilities"}, caps)
}

func TestOperationsDefaultToUtilities(t *testing.T) {
	p := bridgedProvider(&fakeTransport{}, pool.ServerConfig{Name: "alpha"})
	assert.Equal(t, provider.CapabilityUtilities, p.Operations()[0].Capability)
}

func TestInvokeSuccess(t *testing.T) {
	transport := &fakeTransport{result: textResult(false, "row 1", "row 2")}
	p := bridgedProvider(transport, pool.ServerConfig{Name: "alpha"})

	args := map[string]interface{}{"sql": "select 1"}
	result, err := p.Invoke(context.Background(), "run_query", args)
	require.NoError(t, err)
	require.False(t, result.Failed())

	assert.Equal(t, "row 1\nrow 2", result.Data["content"])
	assert.Equal(t, "run_query", transport.lastTool)
	assert.Equal(t, args, transport.lastArgs)
}

func TestInvokeRemoteToolError(t *testing.T) {
	transport := &fakeTransport{result: textResult(true, "syntax error near SELEC")}
	p := bridgedProvider(transport, pool.ServerConfig{Name: "alpha"})

	result, err := p.Invoke(context.Background(), "run_query", nil)
	require.NoError(t, err, "an application-level tool error is a failure result, not an error")
	assert.True(t, result.Failed())
	assert.Equal(t, "syntax error near SELEC", result.Error)
}

func TestInvokeTransportError(t *testing.T) {
	transport := &fakeTransport{callErr: errors.New("broken pipe")}
	p := bridgedProvider(transport, pool.ServerConfig{Name: "alpha"})

	_, err := p.Invoke(context.Background(), "run_query", nil)
	assert.Error(t, err)
}

func TestInvokeBeforeInitialize(t *testing.T) {
	p := New(nil, "alpha")
	_, err := p.Invoke(context.Background(), "run_query", nil)
	assert.Error(t, err)
}

func TestCloseLeavesTransportOpen(t *testing.T) {
	transport := &fakeTransport{}
	p := bridgedProvider(transport, pool.ServerConfig{Name: "alpha"})

	require.NoError(t, p.Close())
	assert.Equal(t, 0, transport.closeCount, "connection lifetime belongs to the pool")

	_, err := p.Invoke(context.Background(), "run_query", nil)
	assert.Error(t, err, "a closed bridge must not reach the transport")
}
