// Package toolcache memoizes tool results across conversations.
//
// Entries are keyed by (scope identity, normalized operation identity,
// canonical argument digest) and stored as serialized JSON with a TTL chosen
// per operation name. Failure-shaped results are never stored, so a
// transient backend outage cannot be frozen into the cache.
package toolcache

import (
	"context"
	"encoding/json"
	"time"

	"dbpilot/internal/provider"
	"dbpilot/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// Config controls cache behavior.
type Config struct {
	// Enabled gates the whole cache; when false every Get is a miss and
	// every Set is a no-op.
	Enabled bool
	// DefaultTTL applies when no fragment table matches. Zero means the
	// package default (60s).
	DefaultTTL time.Duration
	// Overrides maps operation-name fragments to TTLs and is consulted
	// before the built-in fragment table.
	Overrides map[string]time.Duration
}

// Cache is the cross-conversation tool result cache. The backing store is
// shared across concurrent routers; concurrent writes for the same key are a
// benign last-writer-wins race since all writers agree on TTL policy.
type Cache struct {
	client redis.UniversalClient
	config Config
}

// New creates a cache on top of an established redis client. The cache does
// not own the client's lifetime.
func New(client redis.UniversalClient, config Config) *Cache {
	return &Cache{
		client: client,
		config: config,
	}
}

// TTLFor resolves the TTL that would be applied to an operation name,
// override table first. Exposed for observability and tests.
func (c *Cache) TTLFor(operationName string) time.Duration {
	return ttlFor(operationName, c.config.Overrides, c.config.DefaultTTL)
}

// Get returns the cached result for an operation+arguments pair, or
// (nil, false) on miss. Backend and serialization errors are logged and
// reported as misses, never raised.
func (c *Cache) Get(ctx context.Context, scopeID, operationName string, args map[string]interface{}) (*provider.Result, bool) {
	if !c.config.Enabled || c.client == nil {
		return nil, false
	}

	key, err := buildKey(scopeID, operationName, args)
	if err != nil {
		logging.Warn("ToolCache", "Failed to build key for %s: %v", operationName, err)
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warn("ToolCache", "Backend error reading %s: %v", key, err)
		}
		return nil, false
	}

	var result provider.Result
	if err := json.Unmarshal(data, &result); err != nil {
		logging.Warn("ToolCache", "Corrupt cache entry %s: %v", key, err)
		return nil, false
	}

	logging.Debug("ToolCache", "Hit for %s (scope %s)", operationName, scopeID)
	return &result, true
}

// Set stores a result with the TTL resolved for the operation name. A
// failure-shaped result is never stored. Backend errors are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, scopeID, operationName string, args map[string]interface{}, result *provider.Result) {
	if !c.config.Enabled || c.client == nil {
		return
	}

	if result.Failed() {
		logging.Debug("ToolCache", "Skipping failure result for %s", operationName)
		return
	}

	key, err := buildKey(scopeID, operationName, args)
	if err != nil {
		logging.Warn("ToolCache", "Failed to build key for %s: %v", operationName, err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logging.Warn("ToolCache", "Failed to serialize result for %s: %v", operationName, err)
		return
	}

	ttl := c.TTLFor(operationName)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logging.Warn("ToolCache", "Backend error writing %s: %v", key, err)
		return
	}

	logging.Debug("ToolCache", "Stored %s (scope %s, ttl %s)", operationName, scopeID, ttl)
}

// Clear removes all entries for one scope and returns how many were
// deleted. Best effort: enumeration or deletion failures are logged and the
// count so far is returned.
func (c *Cache) Clear(ctx context.Context, scopeID string) int {
	return c.deleteMatching(ctx, scopePattern(scopeID))
}

// ClearAll removes every entry the cache owns.
func (c *Cache) ClearAll(ctx context.Context) int {
	return c.deleteMatching(ctx, allPattern())
}

// Stats reports the entry count for one scope. Best effort; zero on error.
func (c *Cache) Stats(ctx context.Context, scopeID string) int {
	return c.countMatching(ctx, scopePattern(scopeID))
}

// StatsAll reports the total entry count.
func (c *Cache) StatsAll(ctx context.Context) int {
	return c.countMatching(ctx, allPattern())
}

func (c *Cache) deleteMatching(ctx context.Context, pattern string) int {
	if c.client == nil {
		return 0
	}

	deleted := 0
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logging.Warn("ToolCache", "Failed to delete %s: %v", iter.Val(), err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		logging.Warn("ToolCache", "Enumeration failed for %s: %v", pattern, err)
	}
	return deleted
}

func (c *Cache) countMatching(ctx context.Context, pattern string) int {
	if c.client == nil {
		return 0
	}

	count := 0
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		logging.Warn("ToolCache", "Enumeration failed for %s: %v", pattern, err)
	}
	return count
}
