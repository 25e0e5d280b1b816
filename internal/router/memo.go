package router

import (
	"encoding/json"
	"fmt"
	"sync"

	"dbpilot/internal/provider"

	"golang.org/x/sync/singleflight"
)

// memoEntry records the outcome of one completed invocation. Failures are
// memoized too: a repeated identical call within one run observes the same
// failure instead of silently retrying a side-effecting backend call.
type memoEntry struct {
	result *provider.Result
	err    error
}

// runMemo is the per-run memo: scoped to one router instance, no TTL,
// cleared on teardown. The singleflight group coalesces concurrent in-flight
// calls for the same key so duplicate parallel tool calls from one LLM turn
// execute the backend at most once.
type runMemo struct {
	mu      sync.RWMutex
	entries map[string]memoEntry
	flight  singleflight.Group
}

func newRunMemo() *runMemo {
	return &runMemo{
		entries: make(map[string]memoEntry),
	}
}

// memoKey builds the memo key from the exact invocation name and the
// canonical argument JSON. encoding/json sorts map keys at every nesting
// level, so canonically-equal argument sets produce identical keys.
func memoKey(name string, args map[string]interface{}) (string, error) {
	canonical := "{}"
	if len(args) > 0 {
		data, err := json.Marshal(args)
		if err != nil {
			return "", fmt.Errorf("failed to canonicalize arguments: %w", err)
		}
		canonical = string(data)
	}
	return name + "\x00" + canonical, nil
}

// get returns a completed entry, if any.
func (m *runMemo) get(key string) (memoEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	return entry, ok
}

// store records a completed invocation outcome.
func (m *runMemo) store(key string, result *provider.Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoEntry{result: result, err: err}
}

// do runs fn under in-flight de-duplication for key. Concurrent callers with
// the same key share the first caller's outcome.
func (m *runMemo) do(key string, fn func() (*provider.Result, error)) (*provider.Result, error) {
	v, err, _ := m.flight.Do(key, func() (interface{}, error) {
		return fn()
	})
	if v == nil {
		return nil, err
	}
	return v.(*provider.Result), err
}

// clear drops all entries. Called on router teardown.
func (m *runMemo) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]memoEntry)
}

// size reports the entry count for observability.
func (m *runMemo) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
