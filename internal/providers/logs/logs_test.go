package logs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dbpilot/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queryRangeResponse = `{
  "status": "success",
  "data": {
    "result": [
      {
        "stream": {"instance": "pg-main"},
        "values": [
          ["1724400000000000000", "connection reset by peer"],
          ["1724400001000000000", "could not accept client"]
        ]
      }
    ]
  }
}`

const labelsResponse = `{"status": "success", "data": ["instance", "job", "level"]}`

func scopeFor(lokiURL string) *provider.Scope {
	return &provider.Scope{
		ID:   "pg-main",
		Name: "Main Postgres",
		Extensions: map[string]map[string]interface{}{
			"logs": {"lokiURL": lokiURL},
		},
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := New(provider.Deps{Scope: scopeFor(server.URL)})
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))
	return p.(*Provider)
}

func TestNewValidation(t *testing.T) {
	_, err := New(provider.Deps{})
	assert.Error(t, err)

	_, err = New(provider.Deps{Scope: &provider.Scope{ID: "pg-main"}})
	assert.Error(t, err, "a scope without lokiURL must refuse construction")
}

func TestDefaultErrorQuery(t *testing.T) {
	p, err := New(provider.Deps{Scope: scopeFor("http://loki:3100")})
	require.NoError(t, err)
	assert.Equal(t, `{instance="pg-main"} |= "error"`, p.(*Provider).errorQuery)
}

func TestQuery(t *testing.T) {
	var gotQuery, gotLimit string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/loki/api/v1/query_range", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(queryRangeResponse))
	})

	result, err := p.Invoke(context.Background(), "query", map[string]interface{}{
		"query": `{instance="pg-main"}`,
		"limit": float64(50),
	})
	require.NoError(t, err)
	require.False(t, result.Failed())

	assert.Equal(t, `{instance="pg-main"}`, gotQuery)
	assert.Equal(t, "50", gotLimit)
	assert.Equal(t, 2, result.Data["count"])
	assert.Equal(t, []string{"connection reset by peer", "could not accept client"}, result.Data["lines"])
}

func TestQueryRequiresExpression(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(queryRangeResponse))
	})
	_, err := p.Invoke(context.Background(), "query", nil)
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/loki/api/v1/labels", r.URL.Path)
		_, _ = w.Write([]byte(labelsResponse))
	})

	result, err := p.Invoke(context.Background(), "labels", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"instance", "job", "level"}, result.Data["labels"])
}

func TestBackendErrorPropagates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many outstanding requests", http.StatusTooManyRequests)
	})

	_, err := p.Invoke(context.Background(), "query", map[string]interface{}{"query": "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSnapshot(t *testing.T) {
	var gotQuery string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(queryRangeResponse))
	})

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{instance="pg-main"} |= "error"`, gotQuery)
	assert.Equal(t, 2, snap["recent_errors"])
	assert.Equal(t, "Main Postgres", snap["instance"])
}

func TestInvokeBeforeInitialize(t *testing.T) {
	p, err := New(provider.Deps{Scope: scopeFor("http://loki:3100")})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), "labels", nil)
	assert.Error(t, err)
}
