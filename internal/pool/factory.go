package pool

import (
	"fmt"
	"os"
)

// ServerType selects the transport used to reach a logical server.
type ServerType string

const (
	// ServerTypeStdio runs the server as a local subprocess.
	ServerTypeStdio ServerType = "stdio"
	// ServerTypeSSE connects over the legacy streaming-events transport.
	ServerTypeSSE ServerType = "sse"
	// ServerTypeStreamableHTTP connects over the modern bidirectional
	// streaming transport.
	ServerTypeStreamableHTTP ServerType = "streamable-http"
)

// ServerConfig describes one logical capability server the pool should keep
// a session to. Exactly one of the subprocess fields (Command) or the remote
// fields (URL) applies, depending on Type.
type ServerConfig struct {
	Name string     `yaml:"name"`
	Type ServerType `yaml:"type"`

	// Subprocess transport.
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// Remote transports. Header and env values may contain ${VAR}
	// placeholders expanded from the process environment at connect time.
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// Capabilities tags the tools bridged from this server. Kept as plain
	// strings here so the pool stays a leaf; the bridge provider converts
	// them to capability tags.
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// newClientFromConfig creates the appropriate client for a server
// descriptor, expanding environment placeholders in headers and env values.
func newClientFromConfig(cfg ServerConfig) (Client, error) {
	switch cfg.Type {
	case ServerTypeStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("command is required for stdio type")
		}
		return NewStdioClient(cfg.Command, cfg.Args, expandValues(cfg.Env)), nil

	case ServerTypeSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for sse type")
		}
		return NewSSEClient(cfg.URL, expandValues(cfg.Headers)), nil

	case ServerTypeStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("url is required for streamable-http type")
		}
		return NewStreamableHTTPClient(cfg.URL, expandValues(cfg.Headers)), nil

	default:
		return nil, fmt.Errorf("unsupported server type: %s (supported: %s, %s, %s)",
			cfg.Type, ServerTypeStdio, ServerTypeSSE, ServerTypeStreamableHTTP)
	}
}

// expandValues expands ${VAR} placeholders in every value from the process
// environment. Keys are left untouched.
func expandValues(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	expanded := make(map[string]string, len(values))
	for k, v := range values {
		expanded[k] = os.Expand(v, os.Getenv)
	}
	return expanded
}
