package pool

import (
	"context"
	"fmt"
	"time"

	"dbpilot/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
)

// StdioClient implements the Client interface over a subprocess speaking
// MCP on stdin/stdout. The pool owns the subprocess lifetime through Close.
type StdioClient struct {
	baseClient
	command string
	args    []string
	env     map[string]string
}

// NewStdioClient creates a new stdio-based client. env values have already
// been expanded against the process environment by the factory.
func NewStdioClient(command string, args []string, env map[string]string) *StdioClient {
	return &StdioClient{
		command: command,
		args:    args,
		env:     env,
	}
}

// Initialize starts the subprocess and performs the protocol handshake.
func (c *StdioClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	logging.Debug("StdioClient", "Starting subprocess: %s %v", c.command, c.args)

	envStrings := make([]string, 0, len(c.env))
	for k, v := range c.env {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", k, v))
	}

	mcpClient, err := client.NewStdioMCPClient(c.command, envStrings, c.args...)
	if err != nil {
		return fmt.Errorf("failed to create stdio client: %w", err)
	}

	// Bound the handshake so a wedged subprocess cannot stall pool startup.
	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	if _, err := initializeProtocol(initCtx, mcpClient); err != nil {
		logging.Error("StdioClient", err, "Handshake failed for %s", c.command)
		if closeErr := mcpClient.Close(); closeErr != nil {
			logging.Debug("StdioClient", "Error closing failed client for %s: %v", c.command, closeErr)
		}
		return fmt.Errorf("failed to initialize MCP protocol: %w", err)
	}

	c.setConnected(mcpClient)
	logging.Debug("StdioClient", "Subprocess session established for %s", c.command)
	return nil
}
