package toolcache

import (
	"sort"
	"strings"
	"time"
)

// DefaultTTL applies when no fragment in any table matches the operation name.
const DefaultTTL = 60 * time.Second

type fragmentTTL struct {
	fragment string
	ttl      time.Duration
}

// builtinFragmentTTLs maps common operation-name fragments to TTLs.
// Matching is by substring because operation names carry provider-specific
// prefixes and suffixes. Configuration-like data barely moves; live
// connection lists go stale in seconds.
var builtinFragmentTTLs = []fragmentTTL{
	{"config", 10 * time.Minute},
	{"schema", 10 * time.Minute},
	{"runbook", 10 * time.Minute},
	{"list_metrics", 5 * time.Minute},
	{"labels", 5 * time.Minute},
	{"client_list", 10 * time.Second},
	{"slowlog", 30 * time.Second},
	{"overview", 30 * time.Second},
}

// ttlFor resolves the TTL for an operation name. Caller-supplied overrides
// are consulted first, then the built-in table, then DefaultTTL. Within the
// override table fragments are tried in sorted order so resolution is
// deterministic regardless of map iteration.
func ttlFor(operationName string, overrides map[string]time.Duration, defaultTTL time.Duration) time.Duration {
	normalized := NormalizeOperationName(operationName)

	fragments := make([]string, 0, len(overrides))
	for fragment := range overrides {
		fragments = append(fragments, fragment)
	}
	sort.Strings(fragments)
	for _, fragment := range fragments {
		if strings.Contains(normalized, fragment) {
			return overrides[fragment]
		}
	}

	for _, entry := range builtinFragmentTTLs {
		if strings.Contains(normalized, entry.fragment) {
			return entry.ttl
		}
	}

	if defaultTTL > 0 {
		return defaultTTL
	}
	return DefaultTTL
}
