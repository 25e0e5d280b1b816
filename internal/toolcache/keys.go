package toolcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
)

// keyPrefix namespaces every cache entry so the same physical store can be
// shared with other subsystems.
const keyPrefix = "dbpilot:tools"

// argsDigestLength is the hex length of the canonical-argument digest
// embedded in cache keys.
const argsDigestLength = 16

// scopeHashPattern recognizes the fixed-width hex token the router embeds in
// scoped tool names ("{provider}_{hash}_{operation}"). The width must match
// provider.HashLength.
var scopeHashPattern = regexp.MustCompile(`_[0-9a-f]{8}_`)

// NormalizeOperationName strips the embedded scope-hash segment from a tool
// name so that two routers pointed at the same scope, or the same router
// across process restarts, produce identical cache keys.
func NormalizeOperationName(name string) string {
	return scopeHashPattern.ReplaceAllString(name, "_")
}

// CanonicalArgs serializes arguments deterministically. encoding/json
// marshals map keys in sorted order at every nesting level, which is exactly
// the stable ordering the cache key needs.
func CanonicalArgs(args map[string]interface{}) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize arguments: %w", err)
	}
	return string(data), nil
}

// buildKey assembles the final cache key:
// dbpilot:tools:{scope}:{normalized-op}:{args-digest}.
func buildKey(scopeID, operationName string, args map[string]interface{}) (string, error) {
	canonical, err := CanonicalArgs(args)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(canonical))
	digest := hex.EncodeToString(sum[:])[:argsDigestLength]

	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, scopeID, NormalizeOperationName(operationName), digest), nil
}

// scopePattern matches every key belonging to one scope.
func scopePattern(scopeID string) string {
	return fmt.Sprintf("%s:%s:*", keyPrefix, scopeID)
}

// allPattern matches every key the cache owns.
func allPattern() string {
	return keyPrefix + ":*"
}
