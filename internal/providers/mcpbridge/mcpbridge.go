// Package mcpbridge exposes the tools of one pooled MCP server as a
// provider. The bridge borrows its connection from the pool and never closes
// it; connection lifetime belongs exclusively to the pool.
package mcpbridge

import (
	"context"
	"fmt"
	"strings"

	"dbpilot/internal/pool"
	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// Provider bridges a single pooled server.
type Provider struct {
	serverName string
	pool       *pool.Pool

	conn *pool.Connection
}

// New creates a bridge for one logical server name. The connection is looked
// up during Initialize, so a server that never connected surfaces as a
// load-time provider failure (reduced capability, not a hard stop).
func New(p *pool.Pool, serverName string) *Provider {
	return &Provider{
		serverName: serverName,
		pool:       p,
	}
}

// ID returns the provider identifier derived from the server name.
func (p *Provider) ID() string {
	return "mcp_" + sanitize(p.serverName)
}

// Capabilities returns the tags configured on the server descriptor.
func (p *Provider) Capabilities() []provider.Capability {
	if p.conn == nil {
		return nil
	}
	tags := make([]provider.Capability, 0, len(p.conn.Config.Capabilities))
	for _, tag := range p.conn.Config.Capabilities {
		tags = append(tags, provider.Capability(tag))
	}
	return tags
}

// Initialize borrows the pooled connection. It fails when the server never
// connected, which makes the router skip this provider for the session.
func (p *Provider) Initialize(_ context.Context) error {
	conn, ok := p.pool.GetConnection(p.serverName)
	if !ok {
		return fmt.Errorf("pooled server %s is not connected", p.serverName)
	}
	p.conn = conn
	return nil
}

// Operations mirrors the tools discovered at connect time, tagged with the
// descriptor's first capability (utilities when untagged).
func (p *Provider) Operations() []provider.Operation {
	if p.conn == nil {
		return nil
	}

	tag := provider.CapabilityUtilities
	if len(p.conn.Config.Capabilities) > 0 {
		tag = provider.Capability(p.conn.Config.Capabilities[0])
	}

	ops := make([]provider.Operation, 0, len(p.conn.Tools))
	for _, tool := range p.conn.Tools {
		ops = append(ops, provider.Operation{
			Name:        tool.Name,
			Description: tool.Description,
			Capability:  tag,
			Schema:      tool.InputSchema,
		})
	}
	return ops
}

// Invoke forwards the call over the borrowed connection. A protocol-level
// failure propagates as an error; an application-level error reported by the
// remote tool becomes a failure-shaped result so it is never cached.
func (p *Provider) Invoke(ctx context.Context, operation string, args map[string]interface{}) (*provider.Result, error) {
	if p.conn == nil {
		return nil, fmt.Errorf("bridge for %s is not initialized", p.serverName)
	}

	result, err := p.conn.Client.CallTool(ctx, operation, args)
	if err != nil {
		return nil, fmt.Errorf("pooled server %s: %w", p.serverName, err)
	}

	text := flattenContent(result)
	if result.IsError {
		logging.Debug("MCPBridge", "Tool %s on %s returned an error result", operation, p.serverName)
		return provider.Failure(text), nil
	}

	return provider.Success(map[string]interface{}{
		"content": text,
	}), nil
}

// Close releases only the bridge's own reference. The transport is owned by
// the pool and stays open for the next session.
func (p *Provider) Close() error {
	p.conn = nil
	return nil
}

// StatusUpdate narrates bridged calls with the server name.
func (p *Provider) StatusUpdate(operation string, _ map[string]interface{}) string {
	return fmt.Sprintf("Calling %s on %s", operation, p.serverName)
}

func flattenContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// sanitize lowercases a server name and replaces separators so it fits the
// stable, lowercase provider identifier convention.
func sanitize(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}
