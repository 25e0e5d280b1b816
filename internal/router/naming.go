package router

import (
	"fmt"
	"sort"
	"strings"
)

// maxKnownToolsInError bounds the valid-name preview embedded in an
// UnknownToolError so the error payload stays small however many tools are
// loaded.
const maxKnownToolsInError = 10

// UnknownToolError is returned by Resolve for a name absent from the routing
// table. It is a deterministic, structured error the agent loop can show the
// LLM as a corrective message.
type UnknownToolError struct {
	// Name is the tool name that failed to resolve.
	Name string
	// Known is a bounded, sorted preview of valid names.
	Known []string
	// Total is the full routing table size.
	Total int
}

func (e *UnknownToolError) Error() string {
	msg := fmt.Sprintf("unknown tool %q", e.Name)
	if len(e.Known) == 0 {
		return msg + " (no tools loaded)"
	}
	msg += " (known tools: " + strings.Join(e.Known, ", ")
	if e.Total > len(e.Known) {
		msg += fmt.Sprintf(", and %d more", e.Total-len(e.Known))
	}
	return msg + ")"
}

// newUnknownToolError samples at most maxKnownToolsInError names from the
// routing table, sorted for determinism.
func newUnknownToolError(name string, known map[string]route) *UnknownToolError {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)

	preview := names
	if len(preview) > maxKnownToolsInError {
		preview = preview[:maxKnownToolsInError]
	}

	return &UnknownToolError{
		Name:  name,
		Known: preview,
		Total: len(names),
	}
}

// exposedName composes the final invocation name for an operation:
// {provider-id}_{scope-hash}_{operation} when the provider is scope-bound,
// {provider-id}_{operation} otherwise. The scope hash is derived from the
// scope's stable identity so the same scope yields the same names across
// process restarts, which the cache's normalization step relies on.
func exposedName(providerID, scopeHash, operation string) string {
	if scopeHash == "" {
		return providerID + "_" + operation
	}
	return providerID + "_" + scopeHash + "_" + operation
}
