// Package router is the orchestration core of the tool layer. A Router is
// created per conversation/session: it loads the providers in scope, assigns
// every operation a globally unique invocation name, and serves as the single
// entry point the agent loop uses to discover tools and execute calls.
//
// The router owns its providers for the duration of one session. Pooled
// connections and the cross-conversation cache are shared infrastructure the
// router borrows; teardown never touches them.
package router

import (
	"context"
	"fmt"
	"sync"

	"dbpilot/internal/pool"
	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// ResultCache is the cross-conversation cache the router consults around
// provider invocations. Implemented by toolcache.Cache; nil disables it.
type ResultCache interface {
	Get(ctx context.Context, scopeID, operationName string, args map[string]interface{}) (*provider.Result, bool)
	Set(ctx context.Context, scopeID, operationName string, args map[string]interface{}, result *provider.Result)
}

// DynamicRule selects an extra provider based on attributes of the scope,
// e.g. an admin-API provider only when admin credentials are present.
type DynamicRule struct {
	Name string
	When func(scope *provider.Scope) bool
}

// Options configures a router instance.
type Options struct {
	// Registry resolves provider names to factories.
	Registry *provider.Registry
	// Scope is the managed instance this session is about; nil for
	// scope-independent sessions.
	Scope *provider.Scope
	// Pool is the shared connection pool; nil when no pooled servers exist.
	Pool *pool.Pool
	// Cache is the cross-conversation result cache; nil disables caching.
	Cache ResultCache
	// AlwaysOn names providers loaded for every session, in declared order.
	AlwaysOn []string
	// Scoped names providers loaded only when a scope is supplied.
	Scoped []string
	// Dynamic rules add providers conditionally based on scope attributes.
	Dynamic []DynamicRule
	// BridgeFactory builds a provider that exposes one pooled server's
	// tools. Called once per connected server when Pool is set.
	BridgeFactory func(serverName string) (provider.Provider, error)
}

// route binds a final invocation name to its provider and local operation.
type route struct {
	provider  provider.Provider
	operation string
}

// loadedProvider tracks one owned provider with its dedupe key and
// acquisition metadata.
type loadedProvider struct {
	key      string
	instance provider.Provider
	scoped   bool
}

// Router resolves tool names to providers for one session.
type Router struct {
	sessionID string
	opts      Options

	mu        sync.RWMutex
	providers []loadedProvider // acquisition order
	routes    map[string]route
	tools     []mcp.Tool
	memo      *runMemo
	closed    bool
}

// New creates a router and loads its providers. An individual provider
// failing to initialize is logged and skipped; the session continues with
// fewer tools. New only fails on misconfiguration (missing registry).
func New(ctx context.Context, opts Options) (*Router, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}

	r := &Router{
		sessionID: uuid.NewString(),
		opts:      opts,
		routes:    make(map[string]route),
		memo:      newRunMemo(),
	}

	r.load(ctx)
	logging.Info("Router", "Session %s loaded %d providers, %d tools",
		r.sessionID, len(r.providers), len(r.routes))
	return r, nil
}

// load brings up providers in declared order: always-on first, then
// scope-dependent, then dynamically selected, then pooled-server bridges.
// Ordering matters because later providers may discover capabilities earlier
// ones registered.
func (r *Router) load(ctx context.Context) {
	for _, name := range r.opts.AlwaysOn {
		r.loadFromRegistry(ctx, name, nil)
	}

	if r.opts.Scope != nil {
		for _, name := range r.opts.Scoped {
			r.loadFromRegistry(ctx, name, r.opts.Scope)
		}
		for _, rule := range r.opts.Dynamic {
			if rule.When(r.opts.Scope) {
				r.loadFromRegistry(ctx, rule.Name, r.opts.Scope)
			}
		}
	}

	if r.opts.Pool != nil && r.opts.BridgeFactory != nil {
		for _, serverName := range r.opts.Pool.ServerNames() {
			r.loadBridge(ctx, serverName)
		}
	}
}

// loadFromRegistry constructs, initializes and registers one provider by
// registry name. Loading the same provider twice is a no-op.
func (r *Router) loadFromRegistry(ctx context.Context, name string, scope *provider.Scope) {
	if r.isLoaded(name) {
		logging.Debug("Router", "Provider %s already loaded, skipping", name)
		return
	}

	factory, ok := r.opts.Registry.Lookup(name)
	if !ok {
		logging.Warn("Router", "Provider %s is not registered, skipping", name)
		return
	}

	instance, err := factory(provider.Deps{Scope: scope, Pool: r.opts.Pool})
	if err != nil {
		logging.Error("Router", err, "Failed to construct provider %s, continuing without it", name)
		return
	}

	r.adopt(ctx, name, instance, scope != nil)
}

// loadBridge registers the bridge provider for one pooled server.
func (r *Router) loadBridge(ctx context.Context, serverName string) {
	key := "mcp:" + serverName
	if r.isLoaded(key) {
		return
	}

	instance, err := r.opts.BridgeFactory(serverName)
	if err != nil {
		logging.Error("Router", err, "Failed to construct bridge for %s, continuing without it", serverName)
		return
	}

	r.adopt(ctx, key, instance, false)
}

// adopt initializes a constructed provider, wires the discovery
// back-reference, and registers its operations in the routing table.
func (r *Router) adopt(ctx context.Context, key string, instance provider.Provider, scoped bool) {
	if err := instance.Initialize(ctx); err != nil {
		logging.Error("Router", err, "Failed to initialize provider %s, continuing without it", key)
		return
	}

	if aware, ok := instance.(provider.RouterAware); ok {
		aware.SetRouter(r)
	}

	scopeHash := ""
	if scoped && r.opts.Scope != nil {
		scopeHash = r.opts.Scope.Hash()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, loadedProvider{key: key, instance: instance, scoped: scoped})

	for _, op := range instance.Operations() {
		name := exposedName(instance.ID(), scopeHash, op.Name)
		if _, exists := r.routes[name]; exists {
			logging.Warn("Router", "Tool name collision on %s, skipping operation %s of %s",
				name, op.Name, instance.ID())
			continue
		}
		r.routes[name] = route{provider: instance, operation: op.Name}
		r.tools = append(r.tools, mcp.Tool{
			Name:        name,
			Description: op.Description,
			InputSchema: op.Schema,
		})
	}
}

func (r *Router) isLoaded(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lp := range r.providers {
		if lp.key == key {
			return true
		}
	}
	return false
}

// ListTools returns the tool list with final, collision-free names. The list
// is frozen after load; after Close it is empty.
func (r *Router) ListTools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]mcp.Tool, len(r.tools))
	copy(tools, r.tools)
	return tools
}

// Resolve executes the tool call behind an invocation name. Within one
// router instance, canonically-equal calls execute the underlying provider
// at most once: completed calls are answered from the per-run memo
// (including memoized failures), and concurrent duplicates are coalesced
// onto the first in-flight execution. Successful results additionally flow
// through the cross-conversation cache.
func (r *Router) Resolve(ctx context.Context, name string, args map[string]interface{}) (*provider.Result, error) {
	r.mu.RLock()
	rt, exists := r.routes[name]
	if !exists {
		err := newUnknownToolError(name, r.routes)
		r.mu.RUnlock()
		return nil, err
	}
	r.mu.RUnlock()

	key, err := memoKey(name, args)
	if err != nil {
		return nil, err
	}

	if entry, ok := r.memo.get(key); ok {
		logging.Debug("Router", "Memo hit for %s", name)
		return entry.result, entry.err
	}

	return r.memo.do(key, func() (*provider.Result, error) {
		// A duplicate caller may have completed while we queued.
		if entry, ok := r.memo.get(key); ok {
			return entry.result, entry.err
		}

		if cached, ok := r.cacheGet(ctx, name, args); ok {
			r.memo.store(key, cached, nil)
			return cached, nil
		}

		result, err := rt.provider.Invoke(ctx, rt.operation, args)
		r.memo.store(key, result, err)
		if err == nil {
			r.cacheSet(ctx, name, args, result)
		}
		return result, err
	})
}

func (r *Router) scopeID() string {
	if r.opts.Scope != nil {
		return r.opts.Scope.ID
	}
	return "global"
}

func (r *Router) cacheGet(ctx context.Context, name string, args map[string]interface{}) (*provider.Result, bool) {
	if r.opts.Cache == nil {
		return nil, false
	}
	return r.opts.Cache.Get(ctx, r.scopeID(), name, args)
}

func (r *Router) cacheSet(ctx context.Context, name string, args map[string]interface{}, result *provider.Result) {
	if r.opts.Cache == nil {
		return
	}
	r.opts.Cache.Set(ctx, r.scopeID(), name, args, result)
}

// StatusUpdate returns a human-readable progress line for a tool call when
// the owning provider narrates; (_, false) otherwise.
func (r *Router) StatusUpdate(name string, args map[string]interface{}) (string, bool) {
	r.mu.RLock()
	rt, exists := r.routes[name]
	r.mu.RUnlock()

	if !exists {
		return "", false
	}
	narrator, ok := rt.provider.(provider.Narrator)
	if !ok {
		return "", false
	}
	return narrator.StatusUpdate(rt.operation, args), true
}

// ProvidersForCapability returns every loaded provider declaring the tag.
// Unknown tags simply match nothing; routing never switches on the full tag
// set.
func (r *Router) ProvidersForCapability(tag provider.Capability) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []provider.Provider
	for _, lp := range r.providers {
		for _, c := range lp.instance.Capabilities() {
			if c == tag {
				matches = append(matches, lp.instance)
				break
			}
		}
	}
	return matches
}

// ProvidersForProtocol returns every loaded provider matching a structural
// predicate, typically a type assertion against a narrow interface. This
// lets one provider fan out to whichever siblings implement a contract
// without compile-time knowledge of them.
func (r *Router) ProvidersForProtocol(match func(provider.Provider) bool) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []provider.Provider
	for _, lp := range r.providers {
		if match(lp.instance) {
			matches = append(matches, lp.instance)
		}
	}
	return matches
}

// SessionID identifies this router instance in logs.
func (r *Router) SessionID() string {
	return r.sessionID
}

// Close releases every provider in reverse acquisition order, clears the
// discovery back-references, and empties the routing table and per-run memo.
// Pooled connections are shared infrastructure and are deliberately not
// closed here. In-flight Resolve calls are allowed to finish their provider
// scopes; Close only clears router state. Idempotent.
func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for i := len(r.providers) - 1; i >= 0; i-- {
		lp := r.providers[i]
		if aware, ok := lp.instance.(provider.RouterAware); ok {
			aware.SetRouter(nil)
		}
		if err := lp.instance.Close(); err != nil {
			logging.Warn("Router", "Error closing provider %s: %v", lp.key, err)
		}
	}

	r.providers = nil
	r.routes = make(map[string]route)
	r.tools = nil
	r.memo.clear()

	logging.Info("Router", "Session %s closed", r.sessionID)
	return nil
}
