// Package metrics is the Prometheus-backed metrics provider. The operations
// it offers depend on the instance's scope configuration: alias listing only
// exists when aliases are configured.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

const providerID = "metrics"

// Provider queries a Prometheus server scoped to one managed instance.
type Provider struct {
	scope   *provider.Scope
	url     string
	aliases map[string]string

	api promv1.API
}

// New constructs the provider from the scope's "metrics" configuration
// namespace (prometheusURL, aliases).
func New(deps provider.Deps) (provider.Provider, error) {
	if deps.Scope == nil {
		return nil, fmt.Errorf("metrics provider requires a scope")
	}

	cfg := deps.Scope.ProviderConfig(providerID)
	url := provider.ConfigString(cfg, "prometheusURL")
	if url == "" {
		return nil, fmt.Errorf("metrics provider for %s: prometheusURL is not configured", deps.Scope.ID)
	}

	return &Provider{
		scope:   deps.Scope,
		url:     url,
		aliases: provider.ConfigStringMap(cfg, "aliases"),
	}, nil
}

func (p *Provider) ID() string {
	return providerID
}

func (p *Provider) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapabilityMetrics}
}

// Initialize builds the Prometheus API client.
func (p *Provider) Initialize(_ context.Context) error {
	client, err := api.NewClient(api.Config{Address: p.url})
	if err != nil {
		return fmt.Errorf("failed to create prometheus client for %s: %w", p.url, err)
	}
	p.api = promv1.NewAPI(client)
	return nil
}

// Operations lists query and query_range always, and list_metrics only when
// metric aliases are configured for this instance.
func (p *Provider) Operations() []provider.Operation {
	ops := []provider.Operation{
		{
			Name:        "query",
			Description: "Run an instant PromQL query against the instance's Prometheus. Accepts a raw expression or a configured alias name.",
			Capability:  provider.CapabilityMetrics,
			Schema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{"type": "string", "description": "PromQL expression"},
					"alias": map[string]interface{}{"type": "string", "description": "Configured alias name, used when query is empty"},
				},
			},
		},
		{
			Name:        "query_range",
			Description: "Run a ranged PromQL query over a time window.",
			Capability:  provider.CapabilityMetrics,
			Schema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query":        map[string]interface{}{"type": "string", "description": "PromQL expression"},
					"minutes":      map[string]interface{}{"type": "number", "description": "Window length ending now, in minutes (default 60)"},
					"step_seconds": map[string]interface{}{"type": "number", "description": "Resolution step in seconds (default 60)"},
				},
				Required: []string{"query"},
			},
		},
	}

	if len(p.aliases) > 0 {
		ops = append(ops, provider.Operation{
			Name:        "list_metrics",
			Description: "List the metric aliases configured for this instance.",
			Capability:  provider.CapabilityMetrics,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		})
	}

	return ops
}

func (p *Provider) Invoke(ctx context.Context, operation string, args map[string]interface{}) (*provider.Result, error) {
	switch operation {
	case "query":
		return p.query(ctx, args)
	case "query_range":
		return p.queryRange(ctx, args)
	case "list_metrics":
		return p.listMetrics()
	default:
		return nil, fmt.Errorf("metrics provider has no operation %s", operation)
	}
}

func (p *Provider) Close() error {
	p.api = nil
	return nil
}

// StatusUpdate narrates queries with the instance name.
func (p *Provider) StatusUpdate(operation string, args map[string]interface{}) string {
	if expr, ok := args["query"].(string); ok && expr != "" {
		return fmt.Sprintf("Querying metrics for %s: %s", p.scope.Name, expr)
	}
	return fmt.Sprintf("Running %s for %s", operation, p.scope.Name)
}

func (p *Provider) resolveExpression(args map[string]interface{}) (string, error) {
	if expr, ok := args["query"].(string); ok && expr != "" {
		return expr, nil
	}
	if alias, ok := args["alias"].(string); ok && alias != "" {
		expr, exists := p.aliases[alias]
		if !exists {
			return "", fmt.Errorf("unknown metric alias %q", alias)
		}
		return expr, nil
	}
	return "", fmt.Errorf("either query or alias is required")
}

func (p *Provider) query(ctx context.Context, args map[string]interface{}) (*provider.Result, error) {
	expr, err := p.resolveExpression(args)
	if err != nil {
		return nil, err
	}

	value, warnings, err := p.api.Query(ctx, expr, time.Now())
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	logWarnings(warnings)

	return provider.Success(map[string]interface{}{
		"resultType": value.Type().String(),
		"result":     renderValue(value),
	}), nil
}

func (p *Provider) queryRange(ctx context.Context, args map[string]interface{}) (*provider.Result, error) {
	expr, ok := args["query"].(string)
	if !ok || expr == "" {
		return nil, fmt.Errorf("query is required")
	}

	minutes := numberArg(args, "minutes", 60)
	step := numberArg(args, "step_seconds", 60)

	end := time.Now()
	r := promv1.Range{
		Start: end.Add(-time.Duration(minutes) * time.Minute),
		End:   end,
		Step:  time.Duration(step) * time.Second,
	}

	value, warnings, err := p.api.QueryRange(ctx, expr, r)
	if err != nil {
		return nil, fmt.Errorf("prometheus range query failed: %w", err)
	}
	logWarnings(warnings)

	return provider.Success(map[string]interface{}{
		"resultType": value.Type().String(),
		"result":     renderValue(value),
	}), nil
}

func (p *Provider) listMetrics() (*provider.Result, error) {
	names := make([]string, 0, len(p.aliases))
	for name := range p.aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	aliases := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		aliases = append(aliases, map[string]interface{}{
			"alias": name,
			"query": p.aliases[name],
		})
	}

	return provider.Success(map[string]interface{}{
		"aliases": aliases,
	}), nil
}

// Snapshot contributes the configured alias values to cross-provider
// telemetry aggregation. Per-alias query failures are reported inline so one
// bad alias does not hide the rest.
func (p *Provider) Snapshot(ctx context.Context) (map[string]interface{}, error) {
	if p.api == nil {
		return nil, fmt.Errorf("metrics provider is not initialized")
	}

	names := make([]string, 0, len(p.aliases))
	for name := range p.aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]interface{}, len(names))
	for _, name := range names {
		value, warnings, err := p.api.Query(ctx, p.aliases[name], time.Now())
		if err != nil {
			values[name] = fmt.Sprintf("query failed: %v", err)
			continue
		}
		logWarnings(warnings)
		values[name] = renderValue(value)
	}

	return map[string]interface{}{
		"instance": p.scope.Name,
		"metrics":  values,
	}, nil
}

// renderValue flattens a Prometheus result into JSON-friendly data. Vectors
// keep per-sample labels; everything else uses the model's string form.
func renderValue(value model.Value) interface{} {
	vector, ok := value.(model.Vector)
	if !ok {
		return value.String()
	}

	samples := make([]map[string]interface{}, 0, len(vector))
	for _, sample := range vector {
		samples = append(samples, map[string]interface{}{
			"metric": sample.Metric.String(),
			"value":  sample.Value.String(),
			"time":   sample.Timestamp.Time().Format(time.RFC3339),
		})
	}
	return samples
}

func logWarnings(warnings promv1.Warnings) {
	for _, w := range warnings {
		logging.Warn("Metrics", "Prometheus warning: %s", w)
	}
}

func numberArg(args map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok && v > 0 {
		return v
	}
	return fallback
}
