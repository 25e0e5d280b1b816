// Package telemetry aggregates host telemetry across whatever metrics and
// log providers happen to be loaded for the session. It discovers siblings
// through the router's capability registry at call time instead of
// depending on concrete provider types.
package telemetry

import (
	"context"
	"fmt"

	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

const providerID = "telemetry"

// Snapshotter is the structural contract telemetry fans out to. Any loaded
// provider with a Snapshot method participates; none is required.
type Snapshotter interface {
	Snapshot(ctx context.Context) (map[string]interface{}, error)
}

// Provider produces a combined instance overview.
type Provider struct {
	scope *provider.Scope

	// router is a non-owning back-reference, set by the router at load time
	// and cleared with nil at teardown.
	router provider.Discovery
}

// New constructs the telemetry aggregator for a scope.
func New(deps provider.Deps) (provider.Provider, error) {
	if deps.Scope == nil {
		return nil, fmt.Errorf("telemetry provider requires a scope")
	}
	return &Provider{scope: deps.Scope}, nil
}

func (p *Provider) ID() string {
	return providerID
}

func (p *Provider) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapabilityUtilities}
}

func (p *Provider) Initialize(_ context.Context) error {
	return nil
}

// SetRouter stores the discovery back-reference.
func (p *Provider) SetRouter(d provider.Discovery) {
	p.router = d
}

func (p *Provider) Operations() []provider.Operation {
	return []provider.Operation{
		{
			Name:        "overview",
			Description: "Combined health overview of the instance, aggregated from every loaded telemetry source.",
			Capability:  provider.CapabilityUtilities,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		},
	}
}

func (p *Provider) Invoke(ctx context.Context, operation string, _ map[string]interface{}) (*provider.Result, error) {
	if operation != "overview" {
		return nil, fmt.Errorf("telemetry provider has no operation %s", operation)
	}
	if p.router == nil {
		return nil, fmt.Errorf("telemetry provider has no router reference")
	}

	sources := p.router.ProvidersForProtocol(func(candidate provider.Provider) bool {
		_, ok := candidate.(Snapshotter)
		return ok
	})

	snapshots := make(map[string]interface{}, len(sources))
	for _, source := range sources {
		snap, err := source.(Snapshotter).Snapshot(ctx)
		if err != nil {
			// One unreachable source must not hide the others.
			logging.Warn("Telemetry", "Snapshot from %s failed: %v", source.ID(), err)
			snapshots[source.ID()] = map[string]interface{}{"error": err.Error()}
			continue
		}
		snapshots[source.ID()] = snap
	}

	return provider.Success(map[string]interface{}{
		"instance":       p.scope.Name,
		"sources":        len(sources),
		"snapshots":      snapshots,
		"metrics_loaded": len(p.router.ProvidersForCapability(provider.CapabilityMetrics)),
		"logs_loaded":    len(p.router.ProvidersForCapability(provider.CapabilityLogs)),
	}), nil
}

func (p *Provider) Close() error {
	p.router = nil
	return nil
}

// StatusUpdate narrates the fan-out.
func (p *Provider) StatusUpdate(_ string, _ map[string]interface{}) string {
	return fmt.Sprintf("Collecting telemetry overview for %s", p.scope.Name)
}
