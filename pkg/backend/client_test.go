package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/httputil"
	"github.com/matzehuels/linkscope/pkg/views"
)

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, opts)
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "localhost:8080"} {
		_, err := NewClient(u, Options{})
		assert.True(t, lserrors.Is(err, lserrors.ErrCodeValidation), "url %q: %v", u, err)
	}
}

func TestNeighbors(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/neighbors", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"from": {"id": "P:alice"}, "to": {"name": "Acme", "type": "O"}, "rel": "works_at", "weight": 0.5}
		]`))
	}), Options{})

	triples, err := c.Neighbors(context.Background(), "P:alice", 10)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "limit=10&node_id=P%3Aalice", gotQuery)
	assert.Equal(t, "Acme", triples[0].To.Name)
	require.NotNil(t, triples[0].Weight)
	assert.Equal(t, 0.5, *triples[0].Weight)
}

func TestNeighborsEmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}), Options{})

	triples, err := c.Neighbors(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.NotNil(t, triples)
	assert.Empty(t, triples)
}

func TestNeighborsCache(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"from": {"id": "a"}, "to": {"id": "b"}, "rel": "r"}]`))
	})
	hc, err := httputil.NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	c := newTestClient(t, h, Options{Cache: hc})
	for range 3 {
		_, err := c.Neighbors(context.Background(), "a", 5)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load(), "cached responses should not hit the server")

	_, err = c.Neighbors(context.Background(), "a", 6)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "limit is part of the cache key")

	c.refresh = true
	_, err = c.Neighbors(context.Background(), "a", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "refresh bypasses the cache")
}

func TestNeighborsErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		code      lserrors.Code
	}{
		{"server error", http.StatusBadGateway, "", true, ""},
		{"bad request", http.StatusBadRequest, `{"error": "limit too large", "code": "VALIDATION_ERROR"}`, false, lserrors.ErrCodeValidation},
		{"malformed body", http.StatusOK, `{"not": "an array"}`, false, lserrors.ErrCodeMalformedData},
		{"server rejects data", http.StatusUnprocessableEntity, `{"error": "bad triple", "code": "MALFORMED_DATA"}`, false, lserrors.ErrCodeMalformedData},
		{"unsupported", http.StatusNotImplemented, `{"error": "no views", "code": "UNSUPPORTED"}`, false, lserrors.ErrCodeUnsupported},
		{"server timeout", http.StatusGatewayTimeout, `{"error": "source slow", "code": "TIMEOUT"}`, true, lserrors.ErrCodeTimeout},
		{"internal error", http.StatusInternalServerError, `{"error": "boom", "code": "INTERNAL_ERROR"}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}), Options{})

			_, err := c.Neighbors(context.Background(), "a", 1)
			require.Error(t, err)
			assert.Equal(t, tt.retryable, httputil.IsRetryable(err))
			if tt.code != "" {
				assert.Equal(t, tt.code, lserrors.GetCode(err))
			}
		})
	}
}

func TestNeighborsTimeout(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}), Options{Timeout: 50 * time.Millisecond})
	defer close(block)

	_, err := c.Neighbors(context.Background(), "a", 1)
	assert.True(t, lserrors.Is(err, lserrors.ErrCodeTimeout), "got %v", err)
}

func TestNeighborsConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, Options{})
	require.NoError(t, err)
	_, err = c.Neighbors(context.Background(), "a", 1)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, httputil.IsRetryable(err))
}

func TestViewsRoundTrip(t *testing.T) {
	stored := map[string]createViewRequest{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /views", func(w http.ResponseWriter, r *http.Request) {
		var req createViewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		stored["7"] = req
		_, _ = w.Write([]byte(`{"id": 7}`))
	})
	mux.HandleFunc("GET /views", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 7, "name": "case"}, {"id": "abc", "name": "other"}]`))
	})
	mux.HandleFunc("GET /views/{id}", func(w http.ResponseWriter, r *http.Request) {
		req, ok := stored[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "name": req.Name, "nodes": req.Nodes, "edges": req.Edges, "positions": req.Positions,
		})
	})
	c := newTestClient(t, mux, Options{})
	ctx := context.Background()

	rec := views.Record{
		Name:      "case",
		Nodes:     []graph.Node{{ID: "a"}, {ID: "b"}},
		Edges:     []graph.Edge{{ID: "a-r-b", Source: "a", Target: "b", Label: "r", Weight: 1}},
		Positions: graph.Positions{"a": {X: 1, Y: 2}, "b": {X: 3, Y: 4}},
	}
	id, err := c.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
	assert.Equal(t, rec.Nodes, got.Nodes)
	assert.Equal(t, rec.Edges, got.Edges)
	assert.Equal(t, rec.Positions, got.Positions)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []views.Summary{{ID: "7", Name: "case"}, {ID: "abc", Name: "other"}}, list)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, views.ErrNotFound)
}

func TestLoadThroughClientMapsNotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), Options{})
	store := graph.NewStore()

	_, err := views.NewService(c, nil).Load(context.Background(), "42", store)
	assert.True(t, lserrors.Is(err, lserrors.ErrCodePersistenceConflict), "got %v", err)
	assert.True(t, errors.Is(err, views.ErrNotFound))
}

func TestSaveKeepsServerErrorCode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error": "edge P:a-knows-P:x has no target", "code": "MALFORMED_DATA"}`))
	}), Options{})

	store := graph.NewStore()
	store.Merge([]graph.RelationTriple{{From: &graph.Endpoint{ID: "P:a"}, To: &graph.Endpoint{ID: "P:b"}, Rel: "knows"}})
	_, err := views.NewService(c, nil).Save(context.Background(), "case", store.Snapshot(), nil)

	require.Error(t, err)
	assert.True(t, lserrors.Is(err, lserrors.ErrCodeMalformedData), "got %v", err)
	assert.False(t, lserrors.Retryable(err))
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		_, _ = w.Write([]byte("ok"))
	}), Options{Headers: map[string]string{"X-Test": "1"}})
	assert.NoError(t, c.Health(context.Background()))
}

func TestViewIDUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`"abc"`, "abc", true},
		{`42`, "42", true},
		{`true`, "", false},
	}
	for _, tt := range tests {
		var v viewID
		err := json.Unmarshal([]byte(tt.in), &v)
		assert.Equal(t, tt.ok, err == nil, tt.in)
		assert.Equal(t, tt.want, string(v), tt.in)
	}
}
