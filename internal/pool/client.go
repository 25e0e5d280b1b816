package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// protocolVersion is the MCP protocol revision spoken during the handshake.
const protocolVersion = "2024-11-05"

// Client is the transport-agnostic session the pool manages. Implementations
// exist for stdio (subprocess), SSE and streamable-HTTP transports.
type Client interface {
	// Initialize establishes the connection and performs the protocol handshake.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the session.
	Close() error

	// ListTools returns the operations the remote side exposes.
	ListTools(ctx context.Context) ([]mcp.Tool, error)

	// CallTool executes a remote tool and returns its result.
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)

	// Ping checks if the remote side is responsive.
	Ping(ctx context.Context) error
}

// baseClient provides the shared post-handshake operations. Transport
// implementations embed it and only implement Initialize.
type baseClient struct {
	mu        sync.RWMutex
	client    client.MCPClient
	connected bool
}

// setConnected stores the handshaken client. Called by Initialize
// implementations while holding mu.
func (c *baseClient) setConnected(mcpClient client.MCPClient) {
	c.client = mcpClient
	c.connected = true
}

// initializeProtocol performs the MCP handshake on a freshly created client.
func initializeProtocol(ctx context.Context, mcpClient client.MCPClient) (*mcp.InitializeResult, error) {
	return mcpClient.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "dbpilot",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
}

// Close cleanly shuts down the client connection.
func (c *baseClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.connected = false
	c.client = nil

	return err
}

// ListTools returns all available tools from the server.
func (c *baseClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	return result.Tools, nil
}

// CallTool executes a specific tool and returns the result.
func (c *baseClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	result, err := c.client.CallTool(ctx, mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call tool: %w", err)
	}

	return result, nil
}

// Ping checks if the server is responsive.
func (c *baseClient) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected || c.client == nil {
		return fmt.Errorf("client not connected")
	}

	return c.client.Ping(ctx)
}
