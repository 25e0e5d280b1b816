// Package logs is the Loki-backed log provider. Loki has no client library
// in our dependency set, so the provider wraps the HTTP query API directly;
// the core treats it as an opaque capability-tagged unit either way.
package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dbpilot/internal/provider"

	"github.com/mark3labs/mcp-go/mcp"
)

const providerID = "logs"

const defaultQueryLimit = 100

// Provider queries a Loki server scoped to one managed instance.
type Provider struct {
	scope      *provider.Scope
	url        string
	errorQuery string

	httpClient *http.Client
}

// New constructs the provider from the scope's "logs" configuration
// namespace (lokiURL, errorQuery).
func New(deps provider.Deps) (provider.Provider, error) {
	if deps.Scope == nil {
		return nil, fmt.Errorf("logs provider requires a scope")
	}

	cfg := deps.Scope.ProviderConfig(providerID)
	lokiURL := provider.ConfigString(cfg, "lokiURL")
	if lokiURL == "" {
		return nil, fmt.Errorf("logs provider for %s: lokiURL is not configured", deps.Scope.ID)
	}

	errorQuery := provider.ConfigString(cfg, "errorQuery")
	if errorQuery == "" {
		errorQuery = fmt.Sprintf(`{instance=%q} |= "error"`, deps.Scope.ID)
	}

	return &Provider{
		scope:      deps.Scope,
		url:        lokiURL,
		errorQuery: errorQuery,
	}, nil
}

func (p *Provider) ID() string {
	return providerID
}

func (p *Provider) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapabilityLogs}
}

func (p *Provider) Initialize(_ context.Context) error {
	p.httpClient = &http.Client{Timeout: 30 * time.Second}
	return nil
}

func (p *Provider) Operations() []provider.Operation {
	return []provider.Operation{
		{
			Name:        "query",
			Description: "Run a LogQL query over a recent time window and return matching log lines.",
			Capability:  provider.CapabilityLogs,
			Schema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"query":   map[string]interface{}{"type": "string", "description": "LogQL expression"},
					"minutes": map[string]interface{}{"type": "number", "description": "Window length ending now, in minutes (default 60)"},
					"limit":   map[string]interface{}{"type": "number", "description": "Maximum lines to return (default 100)"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "labels",
			Description: "List the log label names known to the instance's log store.",
			Capability:  provider.CapabilityLogs,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		},
	}
}

func (p *Provider) Invoke(ctx context.Context, operation string, args map[string]interface{}) (*provider.Result, error) {
	switch operation {
	case "query":
		return p.query(ctx, args)
	case "labels":
		return p.labels(ctx)
	default:
		return nil, fmt.Errorf("logs provider has no operation %s", operation)
	}
}

func (p *Provider) Close() error {
	p.httpClient = nil
	return nil
}

// StatusUpdate narrates log queries with the instance name.
func (p *Provider) StatusUpdate(operation string, _ map[string]interface{}) string {
	return fmt.Sprintf("Searching logs of %s (%s)", p.scope.Name, operation)
}

func (p *Provider) query(ctx context.Context, args map[string]interface{}) (*provider.Result, error) {
	expr, ok := args["query"].(string)
	if !ok || expr == "" {
		return nil, fmt.Errorf("query is required")
	}

	minutes := 60.0
	if v, ok := args["minutes"].(float64); ok && v > 0 {
		minutes = v
	}
	limit := defaultQueryLimit
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	lines, err := p.queryRange(ctx, expr, time.Duration(minutes)*time.Minute, limit)
	if err != nil {
		return nil, err
	}

	return provider.Success(map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	}), nil
}

func (p *Provider) labels(ctx context.Context) (*provider.Result, error) {
	var response struct {
		Status string   `json:"status"`
		Data   []string `json:"data"`
	}
	if err := p.getJSON(ctx, p.url+"/loki/api/v1/labels", nil, &response); err != nil {
		return nil, err
	}

	return provider.Success(map[string]interface{}{
		"labels": response.Data,
	}), nil
}

// queryRange runs one LogQL range query and flattens the streams into lines.
func (p *Provider) queryRange(ctx context.Context, expr string, window time.Duration, limit int) ([]string, error) {
	end := time.Now()
	params := url.Values{}
	params.Set("query", expr)
	params.Set("start", strconv.FormatInt(end.Add(-window).UnixNano(), 10))
	params.Set("end", strconv.FormatInt(end.UnixNano(), 10))
	params.Set("limit", strconv.Itoa(limit))

	var response struct {
		Status string `json:"status"`
		Data   struct {
			Result []struct {
				Stream map[string]string `json:"stream"`
				Values [][]string        `json:"values"`
			} `json:"result"`
		} `json:"data"`
	}
	if err := p.getJSON(ctx, p.url+"/loki/api/v1/query_range", params, &response); err != nil {
		return nil, err
	}

	var lines []string
	for _, stream := range response.Data.Result {
		for _, value := range stream.Values {
			if len(value) == 2 {
				lines = append(lines, value[1])
			}
		}
	}
	return lines, nil
}

func (p *Provider) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if p.httpClient == nil {
		return fmt.Errorf("logs provider is not initialized")
	}

	target := endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build log query request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("log store unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read log store response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("log store returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed log store response: %w", err)
	}
	return nil
}

// Snapshot contributes a recent-error count to cross-provider telemetry
// aggregation.
func (p *Provider) Snapshot(ctx context.Context) (map[string]interface{}, error) {
	lines, err := p.queryRange(ctx, p.errorQuery, 15*time.Minute, defaultQueryLimit)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"instance":      p.scope.Name,
		"recent_errors": len(lines),
	}, nil
}
