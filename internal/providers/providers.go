// Package providers wires the concrete provider implementations into the
// registry and declares the activation lists the router loads from.
package providers

import (
	"dbpilot/internal/provider"
	"dbpilot/internal/providers/diagnostics"
	"dbpilot/internal/providers/knowledge"
	"dbpilot/internal/providers/logs"
	"dbpilot/internal/providers/metrics"
	"dbpilot/internal/providers/redisadmin"
	"dbpilot/internal/providers/telemetry"
	"dbpilot/internal/router"
)

// Options carries configuration the factories close over.
type Options struct {
	// RunbookDir is the knowledge provider's runbook directory.
	RunbookDir string
}

// RegisterAll populates the registry with every built-in provider factory.
func RegisterAll(registry *provider.Registry, opts Options) error {
	factories := map[string]provider.Factory{
		"knowledge":   knowledge.NewFactory(opts.RunbookDir),
		"metrics":     metrics.New,
		"logs":        logs.New,
		"diagnostics": diagnostics.New,
		"redisadmin":  redisadmin.New,
		"telemetry":   telemetry.New,
	}

	for name, factory := range factories {
		if err := registry.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// AlwaysOn is the declared load order for scope-independent providers.
func AlwaysOn() []string {
	return []string{"knowledge"}
}

// Scoped is the declared load order for scope-dependent providers. telemetry
// loads last so the providers it discovers are already registered.
func Scoped() []string {
	return []string{"metrics", "logs", "diagnostics", "telemetry"}
}

// DynamicRules selects providers from scope attributes: the redis admin
// provider activates only for redis-kind instances with admin credentials.
func DynamicRules() []router.DynamicRule {
	return []router.DynamicRule{
		{
			Name: "redisadmin",
			When: func(scope *provider.Scope) bool {
				return scope.Kind == "redis" && scope.AdminDSN != ""
			},
		},
	}
}
