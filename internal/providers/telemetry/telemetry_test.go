package telemetry

import (
	"context"
	"errors"
	"testing"

	"dbpilot/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotSource is a fake sibling provider that can produce a snapshot.
type snapshotSource struct {
	id      string
	caps    []provider.Capability
	snap    map[string]interface{}
	snapErr error
}

func (s *snapshotSource) ID() string                          { return s.id }
func (s *snapshotSource) Capabilities() []provider.Capability { return s.caps }
func (s *snapshotSource) Operations() []provider.Operation    { return nil }
func (s *snapshotSource) Initialize(context.Context) error    { return nil }
func (s *snapshotSource) Close() error                        { return nil }
func (s *snapshotSource) Invoke(context.Context, string, map[string]interface{}) (*provider.Result, error) {
	return provider.Success(nil), nil
}
func (s *snapshotSource) Snapshot(context.Context) (map[string]interface{}, error) {
	return s.snap, s.snapErr
}

// plainSource has no Snapshot method and must never be selected.
type plainSource struct {
	snapshotSource
}

func (s *plainSource) Snapshot() {} // wrong arity on purpose

// fakeDiscovery implements provider.Discovery over a static provider list.
type fakeDiscovery struct {
	providers []provider.Provider
}

func (d *fakeDiscovery) ProvidersForCapability(tag provider.Capability) []provider.Provider {
	var out []provider.Provider
	for _, p := range d.providers {
		for _, c := range p.Capabilities() {
			if c == tag {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func (d *fakeDiscovery) ProvidersForProtocol(match func(provider.Provider) bool) []provider.Provider {
	var out []provider.Provider
	for _, p := range d.providers {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}

func TestNewRequiresScope(t *testing.T) {
	_, err := New(provider.Deps{})
	assert.Error(t, err)
}

func TestOverviewFansOutToSnapshotters(t *testing.T) {
	metrics := &snapshotSource{
		id:   "metrics",
		caps: []provider.Capability{provider.CapabilityMetrics},
		snap: map[string]interface{}{"cpu": 0.4},
	}
	logs := &snapshotSource{
		id:      "logs",
		caps:    []provider.Capability{provider.CapabilityLogs},
		snapErr: errors.New("loki unreachable"),
	}
	knowledge := &plainSource{snapshotSource{id: "knowledge"}}

	p, err := New(provider.Deps{Scope: &provider.Scope{ID: "pg-main", Name: "Main Postgres"}})
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))

	aware := p.(provider.RouterAware)
	aware.SetRouter(&fakeDiscovery{providers: []provider.Provider{metrics, logs, knowledge}})

	result, err := p.Invoke(context.Background(), "overview", nil)
	require.NoError(t, err)
	require.False(t, result.Failed())

	assert.Equal(t, "Main Postgres", result.Data["instance"])
	assert.Equal(t, 2, result.Data["sources"], "only real snapshotters participate")
	assert.Equal(t, 1, result.Data["metrics_loaded"])
	assert.Equal(t, 1, result.Data["logs_loaded"])

	snapshots := result.Data["snapshots"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"cpu": 0.4}, snapshots["metrics"])
	assert.Equal(t, map[string]interface{}{"error": "loki unreachable"}, snapshots["logs"],
		"one failing source must not hide the others")
	assert.NotContains(t, snapshots, "knowledge")
}

func TestOverviewWithoutRouter(t *testing.T) {
	p, err := New(provider.Deps{Scope: &provider.Scope{ID: "pg-main"}})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), "overview", nil)
	assert.Error(t, err)

	// A torn-down back-reference behaves the same way.
	aware := p.(provider.RouterAware)
	aware.SetRouter(&fakeDiscovery{})
	aware.SetRouter(nil)
	_, err = p.Invoke(context.Background(), "overview", nil)
	assert.Error(t, err)
}

func TestUnknownOperation(t *testing.T) {
	p, err := New(provider.Deps{Scope: &provider.Scope{ID: "pg-main"}})
	require.NoError(t, err)
	_, err = p.Invoke(context.Background(), "explode", nil)
	assert.Error(t, err)
}
