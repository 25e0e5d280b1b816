package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Scope identifies the managed external resource (a database instance) a
// provider instance is bound to. It drives which operations are available
// and the hash segment embedded in scoped tool names.
type Scope struct {
	// ID is the stable identity of the instance. The naming hash is derived
	// from it, never from ephemeral process state, so the same instance
	// yields the same tool names across restarts.
	ID string `yaml:"id"`
	// Name is the human-readable instance name.
	Name string `yaml:"name"`
	// Kind is the resource subtype (e.g. "postgres", "redis"). It selects
	// dynamically loaded providers such as the redis admin provider.
	Kind string `yaml:"kind"`
	// AdminDSN, when set, enables admin-API providers for this instance.
	AdminDSN string `yaml:"adminDSN"`
	// Extensions holds per-provider nested configuration keyed by provider
	// namespace.
	Extensions map[string]map[string]interface{} `yaml:"extensions"`
	// Settings is the legacy flat configuration blob using dotted keys
	// ("metrics.prometheusURL"). Consulted only when the nested namespace
	// has no entry for a key.
	Settings map[string]interface{} `yaml:"settings"`
}

// HashLength is the fixed width of the hex digest segment embedded in
// scoped tool names. The cache's name normalization depends on this width.
const HashLength = 8

// Hash returns a short deterministic digest of the scope identity.
func (s *Scope) Hash() string {
	sum := sha256.Sum256([]byte(s.ID))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// ProviderConfig returns the configuration blob for one provider namespace.
// Lookup is two-phase: the nested Extensions namespace wins, then any flat
// Settings keys with a "<providerID>." prefix are folded in for keys the
// nested namespace did not set.
func (s *Scope) ProviderConfig(providerID string) map[string]interface{} {
	merged := make(map[string]interface{})

	prefix := providerID + "."
	for key, value := range s.Settings {
		if strings.HasPrefix(key, prefix) {
			merged[strings.TrimPrefix(key, prefix)] = value
		}
	}

	for key, value := range s.Extensions[providerID] {
		merged[key] = value
	}

	return merged
}

// ConfigString extracts a string value from a provider config blob,
// returning "" when absent or not a string.
func ConfigString(cfg map[string]interface{}, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// ConfigStringMap extracts a map of string values from a provider config
// blob. YAML decodes nested maps as map[string]interface{}; non-string
// values are skipped.
func ConfigStringMap(cfg map[string]interface{}, key string) map[string]string {
	result := make(map[string]string)
	nested, ok := cfg[key].(map[string]interface{})
	if !ok {
		return result
	}
	for k, v := range nested {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
