// Package knowledge serves operational runbooks from a local directory.
// It is always-on and scope-independent.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

const providerID = "knowledge"

// Runbook is one operational procedure on disk.
type Runbook struct {
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags"`
	Summary string   `yaml:"summary"`
	Steps   []string `yaml:"steps"`
}

// Provider loads runbooks once at initialization; the operation list and
// content stay stable for the provider instance's lifetime.
type Provider struct {
	dir      string
	runbooks map[string]Runbook
}

// NewFactory binds the runbook directory so the provider can be constructed
// through the registry like every other provider.
func NewFactory(dir string) provider.Factory {
	return func(provider.Deps) (provider.Provider, error) {
		if dir == "" {
			return nil, fmt.Errorf("knowledge provider: runbook directory is not configured")
		}
		return &Provider{dir: dir}, nil
	}
}

func (p *Provider) ID() string {
	return providerID
}

func (p *Provider) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapabilityKnowledge}
}

// Initialize walks the runbook directory, loading every YAML file. A file
// that fails to parse is logged and skipped.
func (p *Provider) Initialize(_ context.Context) error {
	if _, err := os.Stat(p.dir); err != nil {
		return fmt.Errorf("runbook directory %s unavailable: %w", p.dir, err)
	}

	p.runbooks = make(map[string]Runbook)
	err := filepath.Walk(p.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logging.Error("Knowledge", err, "Failed to read runbook %s", path)
			return nil
		}

		var rb Runbook
		if err := yaml.Unmarshal(content, &rb); err != nil {
			logging.Error("Knowledge", err, "Failed to parse runbook %s", path)
			return nil
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		p.runbooks[name] = rb
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk runbook directory: %w", err)
	}

	logging.Info("Knowledge", "Loaded %d runbooks from %s", len(p.runbooks), p.dir)
	return nil
}

func (p *Provider) Operations() []provider.Operation {
	return []provider.Operation{
		{
			Name:        "list_runbooks",
			Description: "List the available operational runbooks with their tags.",
			Capability:  provider.CapabilityKnowledge,
			Schema:      mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
		},
		{
			Name:        "get_runbook",
			Description: "Fetch one runbook's summary and steps by name.",
			Capability:  provider.CapabilityKnowledge,
			Schema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"name": map[string]interface{}{"type": "string", "description": "Runbook name from list_runbooks"},
				},
				Required: []string{"name"},
			},
		},
	}
}

func (p *Provider) Invoke(_ context.Context, operation string, args map[string]interface{}) (*provider.Result, error) {
	switch operation {
	case "list_runbooks":
		return p.list()
	case "get_runbook":
		return p.get(args)
	default:
		return nil, fmt.Errorf("knowledge provider has no operation %s", operation)
	}
}

func (p *Provider) Close() error {
	p.runbooks = nil
	return nil
}

func (p *Provider) list() (*provider.Result, error) {
	names := make([]string, 0, len(p.runbooks))
	for name := range p.runbooks {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		rb := p.runbooks[name]
		entries = append(entries, map[string]interface{}{
			"name":  name,
			"title": rb.Title,
			"tags":  rb.Tags,
		})
	}

	return provider.Success(map[string]interface{}{
		"runbooks": entries,
	}), nil
}

func (p *Provider) get(args map[string]interface{}) (*provider.Result, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("name is required")
	}

	rb, exists := p.runbooks[name]
	if !exists {
		return provider.Failure(fmt.Sprintf("no runbook named %q", name)), nil
	}

	return provider.Success(map[string]interface{}{
		"title":   rb.Title,
		"tags":    rb.Tags,
		"summary": rb.Summary,
		"steps":   rb.Steps,
	}), nil
}

func isYAML(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
