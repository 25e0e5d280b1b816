package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dbpilot/pkg/logging"

	"github.com/cenkalti/backoff/v5"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// connectTimeout bounds a single server's connect-plus-handshake.
	connectTimeout = 15 * time.Second
	// closeTimeout bounds the graceful close of a single connection during
	// shutdown; a wedged transport is dropped after this.
	closeTimeout = 5 * time.Second
	// reconnectMaxTries bounds Reconnect's backoff loop.
	reconnectMaxTries = 3
)

// Connection is a long-lived session to one logical capability server. The
// pool is the sole owner of the transport; everyone else borrows and must
// never call Close on the client.
type Connection struct {
	// Name is the logical server name from the descriptor.
	Name string
	// Client is the live transport handle. Borrowed-only outside the pool.
	Client Client
	// Tools is the capability list discovered during the connect handshake.
	Tools []mcp.Tool
	// Config is the descriptor this connection was built from.
	Config ServerConfig
	// ConnectedAt records when the session was established.
	ConnectedAt time.Time

	lastUsedUnix atomic.Int64
	callCount    atomic.Int64
}

// touch records a borrow for observability.
func (c *Connection) touch() {
	c.lastUsedUnix.Store(time.Now().Unix())
	c.callCount.Add(1)
}

// LastUsed returns the time of the most recent borrow.
func (c *Connection) LastUsed() time.Time {
	return time.Unix(c.lastUsedUnix.Load(), 0)
}

// CallCount returns how many times the connection has been borrowed.
func (c *Connection) CallCount() int64 {
	return c.callCount.Load()
}

// Pool keeps expensive-to-establish capability-server sessions warm across
// many short-lived conversations. It is constructed once at process start,
// started explicitly, and shut down at process end; individual routers never
// tear it down.
type Pool struct {
	mu          sync.RWMutex
	configs     []ServerConfig
	connections map[string]*Connection

	// newClient builds the transport for a descriptor. Overridable in tests.
	newClient func(ServerConfig) (Client, error)
}

// New creates a pool for the given server descriptors. No connections are
// made until Start.
func New(configs []ServerConfig) *Pool {
	return &Pool{
		configs:     configs,
		connections: make(map[string]*Connection),
		newClient:   newClientFromConfig,
	}
}

// Start establishes a session to every configured server and performs the
// capability handshake. Per-server failure is isolated: other servers still
// start, and the outcome is reported in the returned map (true = connected).
// Start never returns an error for an individual server.
func (p *Pool) Start(ctx context.Context) map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make(map[string]bool, len(p.configs))
	for _, cfg := range p.configs {
		if _, exists := p.connections[cfg.Name]; exists {
			logging.Warn("Pool", "Server %s already connected, skipping", cfg.Name)
			results[cfg.Name] = true
			continue
		}

		conn, err := p.connect(ctx, cfg)
		if err != nil {
			logging.Error("Pool", err, "Failed to connect server %s", cfg.Name)
			results[cfg.Name] = false
			continue
		}

		p.connections[cfg.Name] = conn
		results[cfg.Name] = true
		logging.Info("Pool", "Connected server %s with %d tools", cfg.Name, len(conn.Tools))
	}

	return results
}

// connect builds a client, performs the handshake and discovers tools.
func (p *Pool) connect(ctx context.Context, cfg ServerConfig) (*Connection, error) {
	mcpClient, err := p.newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid server descriptor: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := mcpClient.Initialize(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", cfg.Name, err)
	}

	tools, err := mcpClient.ListTools(connectCtx)
	if err != nil {
		// A server without a readable tool list is unusable; close what we opened.
		p.closeClient(cfg.Name, mcpClient)
		return nil, fmt.Errorf("failed to discover tools for %s: %w", cfg.Name, err)
	}

	conn := &Connection{
		Name:        cfg.Name,
		Client:      mcpClient,
		Tools:       tools,
		Config:      cfg,
		ConnectedAt: time.Now(),
	}
	conn.lastUsedUnix.Store(time.Now().Unix())
	return conn, nil
}

// GetConnection returns the live session for a logical server name, touching
// its usage counters. A server that never connected or was torn down yields
// (nil, false); that is an expected condition, not an error.
func (p *Pool) GetConnection(name string) (*Connection, bool) {
	p.mu.RLock()
	conn, exists := p.connections[name]
	p.mu.RUnlock()

	if !exists {
		return nil, false
	}

	conn.touch()
	return conn, true
}

// ServerNames returns the connected server names in stable order.
func (p *Pool) ServerNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.connections))
	for name := range p.connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reconnect tears down and re-establishes a single server's session without
// affecting others. The old connection is closed tolerantly; the new one is
// attempted with exponential backoff.
func (p *Pool) Reconnect(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cfg *ServerConfig
	for i := range p.configs {
		if p.configs[i].Name == name {
			cfg = &p.configs[i]
			break
		}
	}
	if cfg == nil {
		return fmt.Errorf("server %s is not configured", name)
	}

	if old, exists := p.connections[name]; exists {
		p.closeClient(name, old.Client)
		delete(p.connections, name)
	}

	expBackoff := backoff.NewExponentialBackOff()
	conn, err := backoff.Retry(ctx, func() (*Connection, error) {
		return p.connect(ctx, *cfg)
	}, backoff.WithBackOff(expBackoff), backoff.WithMaxTries(reconnectMaxTries))
	if err != nil {
		return fmt.Errorf("failed to reconnect %s: %w", name, err)
	}

	p.connections[name] = conn
	logging.Info("Pool", "Reconnected server %s with %d tools", name, len(conn.Tools))
	return nil
}

// Shutdown closes every connection. In graceful mode each close gets the
// same tolerant handling as single-connection teardown; in force mode the
// handles are simply dropped without protocol-level close, so a wedged
// transport cannot hang process exit.
func (p *Pool) Shutdown(ctx context.Context, force bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, conn := range p.connections {
		if force {
			logging.Debug("Pool", "Dropping connection %s without close (forced)", name)
			continue
		}
		p.closeClient(name, conn.Client)
	}

	p.connections = make(map[string]*Connection)
	logging.Info("Pool", "Pool shut down (force=%v)", force)
}

// closeClient closes one transport, tolerating and swallowing everything
// that can go wrong: a timeout waiting for graceful close, a panic from a
// cross-goroutine ownership mismatch (the pool may be shut down from a
// different goroutine than the one that created the connection), and
// ordinary transport close errors. Failures are logged, never propagated.
func (p *Pool) closeClient(name string, c Client) {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic during close: %v", r)
			}
		}()
		done <- c.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			logging.Warn("Pool", "Error closing connection %s: %v", name, err)
		}
	case <-time.After(closeTimeout):
		logging.Warn("Pool", "Timed out closing connection %s after %s", name, closeTimeout)
	}
}
