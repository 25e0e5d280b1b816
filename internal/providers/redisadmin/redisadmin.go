// Package redisadmin is the admin-API provider for redis-kind instances. It
// is loaded dynamically: only when the scope is a redis instance and admin
// credentials (an admin DSN) are configured.
package redisadmin

import (
	"context"
	"fmt"
	"strings"

	"dbpilot/internal/provider"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/redis/go-redis/v9"
)

const providerID = "redisadmin"

// slowlogEntries is how many slow log entries one call returns.
const slowlogEntries = 25

// Provider runs administrative commands against a managed redis instance.
type Provider struct {
	scope  *provider.Scope
	client *redis.Client
}

// New constructs the provider from the scope's admin DSN.
func New(deps provider.Deps) (provider.Provider, error) {
	if deps.Scope == nil {
		return nil, fmt.Errorf("redis admin provider requires a scope")
	}
	if deps.Scope.AdminDSN == "" {
		return nil, fmt.Errorf("redis admin provider for %s: no admin DSN configured", deps.Scope.ID)
	}

	return &Provider{scope: deps.Scope}, nil
}

func (p *Provider) ID() string {
	return providerID
}

func (p *Provider) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapabilityDiagnostics, provider.CapabilityMetrics}
}

// Initialize connects and verifies the admin session with a ping.
func (p *Provider) Initialize(ctx context.Context) error {
	opts, err := redis.ParseURL(p.scope.AdminDSN)
	if err != nil {
		return fmt.Errorf("invalid admin DSN for %s: %w", p.scope.ID, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to reach redis admin endpoint for %s: %w", p.scope.ID, err)
	}

	p.client = client
	return nil
}

func (p *Provider) Operations() []provider.Operation {
	return []provider.Operation{
		{
			Name:        "client_list",
			Description: "List the connections currently open against the instance.",
			Capability:  provider.CapabilityDiagnostics,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		},
		{
			Name:        "config_get",
			Description: "Read instance configuration parameters matching a glob pattern.",
			Capability:  provider.CapabilityDiagnostics,
			Schema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"pattern": map[string]interface{}{"type": "string", "description": "Parameter glob (default *)"},
				},
			},
		},
		{
			Name:        "slowlog",
			Description: "Fetch the most recent entries from the instance slow log.",
			Capability:  provider.CapabilityMetrics,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		},
	}
}

func (p *Provider) Invoke(ctx context.Context, operation string, args map[string]interface{}) (*provider.Result, error) {
	if p.client == nil {
		return nil, fmt.Errorf("redis admin provider is not initialized")
	}

	switch operation {
	case "client_list":
		return p.clientList(ctx)
	case "config_get":
		return p.configGet(ctx, args)
	case "slowlog":
		return p.slowlog(ctx)
	default:
		return nil, fmt.Errorf("redis admin provider has no operation %s", operation)
	}
}

// Close releases the admin session. The provider owns this client outright;
// it is not a pooled connection.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *Provider) clientList(ctx context.Context) (*provider.Result, error) {
	raw, err := p.client.ClientList(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("CLIENT LIST failed: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(raw), "\n")
	return provider.Success(map[string]interface{}{
		"connections": lines,
		"count":       len(lines),
	}), nil
}

func (p *Provider) configGet(ctx context.Context, args map[string]interface{}) (*provider.Result, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		pattern = "*"
	}

	values, err := p.client.ConfigGet(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("CONFIG GET failed: %w", err)
	}

	params := make(map[string]interface{}, len(values))
	for k, v := range values {
		params[k] = v
	}
	return provider.Success(map[string]interface{}{
		"parameters": params,
	}), nil
}

func (p *Provider) slowlog(ctx context.Context) (*provider.Result, error) {
	entries, err := p.client.SlowLogGet(ctx, slowlogEntries).Result()
	if err != nil {
		return nil, fmt.Errorf("SLOWLOG GET failed: %w", err)
	}

	rendered := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		rendered = append(rendered, map[string]interface{}{
			"id":       entry.ID,
			"time":     entry.Time.String(),
			"duration": entry.Duration.String(),
			"command":  strings.Join(entry.Args, " "),
		})
	}

	return provider.Success(map[string]interface{}{
		"entries": rendered,
	}), nil
}

// StatusUpdate narrates admin commands with the instance name.
func (p *Provider) StatusUpdate(operation string, _ map[string]interface{}) string {
	return fmt.Sprintf("Running %s against %s", operation, p.scope.Name)
}
