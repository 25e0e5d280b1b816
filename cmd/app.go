package cmd

import (
	"context"
	"fmt"

	"dbpilot/internal/config"
	"dbpilot/internal/pool"
	"dbpilot/internal/provider"
	"dbpilot/internal/providers"
	"dbpilot/internal/providers/mcpbridge"
	"dbpilot/internal/router"
	"dbpilot/internal/toolcache"

	"github.com/redis/go-redis/v9"
)

// app bundles the process-wide resources a command needs: the configuration,
// the connection pool, the cache, and the provider registry. Routers are
// per-invocation and built on top.
type app struct {
	cfg      *config.Config
	pool     *pool.Pool
	cache    *toolcache.Cache
	registry *provider.Registry

	redisClient *redis.Client
}

// newApp loads configuration and constructs the shared resources without
// touching the network; connections happen in startPool.
func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	if err := providers.RegisterAll(registry, providers.Options{
		RunbookDir: cfg.Runbooks.Dir,
	}); err != nil {
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	a := &app{
		cfg:      cfg,
		pool:     pool.New(cfg.Pool.Servers),
		registry: registry,
	}

	if cfg.Cache.Enabled {
		a.redisClient = cfg.Cache.Redis.NewRedisClient()
		a.cache = toolcache.New(a.redisClient, cfg.Cache.ToolCacheConfig())
	}

	return a, nil
}

// startPool connects every configured capability server. Per-server failure
// is reported in the returned map, never as an error.
func (a *app) startPool(ctx context.Context) map[string]bool {
	return a.pool.Start(ctx)
}

// newRouter builds a router session for one managed instance, or a
// scope-independent session when instanceID is empty.
func (a *app) newRouter(ctx context.Context, instanceID string) (*router.Router, error) {
	var scope *provider.Scope
	if instanceID != "" {
		s, ok := a.cfg.Instance(instanceID)
		if !ok {
			return nil, fmt.Errorf("unknown instance %q", instanceID)
		}
		scope = s
	}

	opts := router.Options{
		Registry: a.registry,
		Scope:    scope,
		Pool:     a.pool,
		AlwaysOn: providers.AlwaysOn(),
		Scoped:   providers.Scoped(),
		Dynamic:  providers.DynamicRules(),
		BridgeFactory: func(serverName string) (provider.Provider, error) {
			return mcpbridge.New(a.pool, serverName), nil
		},
	}
	if a.cache != nil {
		opts.Cache = a.cache
	}

	return router.New(ctx, opts)
}

// shutdown releases process-wide resources. The pool closes gracefully here;
// force-drop is reserved for already-exiting processes.
func (a *app) shutdown(ctx context.Context) {
	a.pool.Shutdown(ctx, false)
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}
