// Package diagnostics runs raw host diagnostic commands for an instance.
// Only a fixed allowlist of commands can execute; arguments from the LLM
// never reach a shell.
package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

const providerID = "diagnostics"

// commandTimeout bounds each diagnostic subprocess.
const commandTimeout = 20 * time.Second

// command is one allowlisted diagnostic.
type command struct {
	description string
	binary      string
	// args builds the argument vector. host is the instance host from scope
	// configuration; only fixed flags and the host ever reach the binary.
	args func(host string) []string
}

var commands = map[string]command{
	"ping": {
		description: "Check network reachability of the instance host (3 ICMP probes).",
		binary:      "ping",
		args:        func(host string) []string { return []string{"-c", "3", "-W", "2", host} },
	},
	"disk_usage": {
		description: "Report filesystem usage on the assistant host.",
		binary:      "df",
		args:        func(string) []string { return []string{"-h"} },
	},
	"socket_summary": {
		description: "Summarize open sockets on the assistant host.",
		binary:      "ss",
		args:        func(string) []string { return []string{"-s"} },
	},
}

// Provider executes allowlisted diagnostic commands for one instance.
type Provider struct {
	scope *provider.Scope
	host  string
}

// New constructs the provider from the scope's "diagnostics" namespace
// (host). The host defaults to the scope ID.
func New(deps provider.Deps) (provider.Provider, error) {
	if deps.Scope == nil {
		return nil, fmt.Errorf("diagnostics provider requires a scope")
	}

	cfg := deps.Scope.ProviderConfig(providerID)
	host := provider.ConfigString(cfg, "host")
	if host == "" {
		host = deps.Scope.ID
	}

	return &Provider{
		scope: deps.Scope,
		host:  host,
	}, nil
}

func (p *Provider) ID() string {
	return providerID
}

func (p *Provider) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapabilityDiagnostics}
}

func (p *Provider) Initialize(_ context.Context) error {
	return nil
}

func (p *Provider) Operations() []provider.Operation {
	ops := make([]provider.Operation, 0, len(commands))
	// Stable declaration order keeps the tool list deterministic.
	for _, name := range []string{"ping", "disk_usage", "socket_summary"} {
		cmd := commands[name]
		ops = append(ops, provider.Operation{
			Name:        name,
			Description: cmd.description,
			Capability:  provider.CapabilityDiagnostics,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		})
	}
	return ops
}

func (p *Provider) Invoke(ctx context.Context, operation string, _ map[string]interface{}) (*provider.Result, error) {
	cmd, ok := commands[operation]
	if !ok {
		return nil, fmt.Errorf("diagnostics provider has no operation %s", operation)
	}

	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(runCtx, cmd.binary, cmd.args(p.host)...)
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	logging.Debug("Diagnostics", "Running %s for instance %s", cmd.binary, p.scope.ID)
	if err := proc.Run(); err != nil {
		// Non-zero exit is diagnostic signal, not infrastructure failure.
		return provider.Failure(fmt.Sprintf("%s failed: %v: %s", cmd.binary, err, stderr.String())), nil
	}

	return provider.Success(map[string]interface{}{
		"command": cmd.binary,
		"output":  stdout.String(),
	}), nil
}

func (p *Provider) Close() error {
	return nil
}

// StatusUpdate narrates which diagnostic is running against which instance.
func (p *Provider) StatusUpdate(operation string, _ map[string]interface{}) string {
	return fmt.Sprintf("Running %s diagnostic for %s", operation, p.scope.Name)
}
