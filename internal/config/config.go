// Package config loads the dbpilot application configuration: pooled
// capability servers, cache policy, runbooks and managed instances.
package config

import (
	"fmt"
	"os"
	"time"

	"dbpilot/internal/pool"
	"dbpilot/internal/provider"
	"dbpilot/internal/toolcache"
	"dbpilot/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Pool      PoolConfig       `yaml:"pool"`
	Cache     CacheConfig      `yaml:"cache"`
	Runbooks  RunbooksConfig   `yaml:"runbooks"`
	Instances []provider.Scope `yaml:"instances"`
}

// PoolConfig lists the logical capability servers the pool keeps warm.
type PoolConfig struct {
	Servers []pool.ServerConfig `yaml:"servers"`
}

// CacheConfig configures the cross-conversation tool cache. TTLs are in
// seconds because YAML carries them as plain integers.
type CacheConfig struct {
	Enabled           bool           `yaml:"enabled"`
	DefaultTTLSeconds int            `yaml:"defaultTTLSeconds"`
	OverridesSeconds  map[string]int `yaml:"overridesSeconds"`
	Redis             RedisConfig    `yaml:"redis"`
}

// RedisConfig locates the cache's backing store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RunbooksConfig locates the knowledge provider's runbook directory.
type RunbooksConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads and validates a configuration file. Invalid instance entries
// are logged and dropped so one bad instance cannot take the whole
// configuration down.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.Instances = validInstances(cfg.Instances)
	if err := validateServers(cfg.Pool.Servers); err != nil {
		return nil, err
	}

	logging.Info("Config", "Loaded %d instances and %d pooled servers from %s",
		len(cfg.Instances), len(cfg.Pool.Servers), path)
	return &cfg, nil
}

// validInstances keeps well-formed, unique instances and logs the rest.
func validInstances(instances []provider.Scope) []provider.Scope {
	seen := make(map[string]bool, len(instances))
	valid := make([]provider.Scope, 0, len(instances))
	for _, instance := range instances {
		if instance.ID == "" {
			logging.Warn("Config", "Skipping instance with empty id (name: %q)", instance.Name)
			continue
		}
		if seen[instance.ID] {
			logging.Warn("Config", "Skipping duplicate instance id %s", instance.ID)
			continue
		}
		seen[instance.ID] = true
		valid = append(valid, instance)
	}
	return valid
}

// validateServers rejects descriptors the pool factory would refuse anyway,
// so misconfiguration surfaces at load time instead of connect time.
func validateServers(servers []pool.ServerConfig) error {
	seen := make(map[string]bool, len(servers))
	for _, server := range servers {
		if server.Name == "" {
			return fmt.Errorf("pooled server with empty name")
		}
		if seen[server.Name] {
			return fmt.Errorf("duplicate pooled server name %s", server.Name)
		}
		seen[server.Name] = true
	}
	return nil
}

// Instance returns the scope for one instance ID.
func (c *Config) Instance(id string) (*provider.Scope, bool) {
	for i := range c.Instances {
		if c.Instances[i].ID == id {
			return &c.Instances[i], true
		}
	}
	return nil, false
}

// ToolCacheConfig converts the YAML cache settings into the toolcache form.
func (c *CacheConfig) ToolCacheConfig() toolcache.Config {
	overrides := make(map[string]time.Duration, len(c.OverridesSeconds))
	for fragment, seconds := range c.OverridesSeconds {
		overrides[fragment] = time.Duration(seconds) * time.Second
	}
	return toolcache.Config{
		Enabled:    c.Enabled,
		DefaultTTL: time.Duration(c.DefaultTTLSeconds) * time.Second,
		Overrides:  overrides,
	}
}

// NewRedisClient builds the cache's backing client. The caller owns its
// lifetime.
func (c *RedisConfig) NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	})
}
