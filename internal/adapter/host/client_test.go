package host

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	key               = "rodeo.owlbear.weather/weather"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeHost is a minimal host service with one revision counter.
type fakeHost struct {
	mu        sync.Mutex
	t         *testing.T
	selection []string
	items     map[string]scene.Item
	revision  string
	puts      int
}

func (h *fakeHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/selection":
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(h.t, json.NewEncoder(w).Encode(selectionResponse{Selection: h.selection}))
	case r.Method == http.MethodGet && r.URL.Path == "/items":
		out := []scene.Item{}
		for _, id := range r.URL.Query()["id"] {
			if it, ok := h.items[id]; ok {
				out = append(out, it)
			}
		}
		w.Header().Set("ETag", h.revision)
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(h.t, json.NewEncoder(w).Encode(out))
	case r.Method == http.MethodPut && r.URL.Path == "/items":
		if r.Header.Get("If-Match") != h.revision {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		var in []scene.Item
		require.NoError(h.t, json.NewDecoder(r.Body).Decode(&in))
		for _, it := range in {
			h.items[it.ID] = it
		}
		h.puts++
		h.revision += "+"
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func TestClient_Selection(t *testing.T) {
	h := &fakeHost{t: t, selection: []string{"a", "b"}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	got, err := testClient(srv.URL + "/").Selection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestClient_Items(t *testing.T) {
	h := &fakeHost{t: t, items: map[string]scene.Item{
		"a": {ID: "a", Metadata: map[string]any{key: map[string]any{"type": "RAIN"}}},
		"b": {ID: "b"},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	items, err := testClient(srv.URL).Items(context.Background(), []string{"a", "b", "zzz"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	cfg, ok := domain.Lookup(items[0].Metadata, key)
	require.True(t, ok)
	assert.Equal(t, domain.Rain, cfg.Type)
}

func TestClient_ItemsEmptyIDs(t *testing.T) {
	items, err := testClient("http://127.0.0.1:0").Items(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClient_UpdateItemsThroughSyncer(t *testing.T) {
	h := &fakeHost{
		t:         t,
		selection: []string{"a", "b", "c"},
		revision:  "r1",
		items: map[string]scene.Item{
			"a": {ID: "a", Metadata: map[string]any{key: map[string]any{"type": "RAIN", "speed": 1}}},
			"b": {ID: "b"},
			"c": {ID: "c", Metadata: map[string]any{key: []any{"not", "ours"}}},
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := testClient(srv.URL)
	s := configsync.New(c, c, key, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, s.Apply(context.Background(), configsync.SetSpeed(4)))

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, 1, h.puts)
	for _, id := range []string{"a", "b"} {
		cfg, ok := domain.Lookup(h.items[id].Metadata, key)
		require.True(t, ok, id)
		assert.Equal(t, 4, *cfg.Speed, id)
	}
	assert.Equal(t, []any{"not", "ours"}, h.items["c"].Metadata[key])
}

func TestClient_UpdateItemsConflict(t *testing.T) {
	h := &fakeHost{t: t, revision: "r1", items: map[string]scene.Item{"a": {ID: "a"}}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.UpdateItems(context.Background(), []string{"a"}, func(items []*scene.Item) {
		// Someone else commits between our read and write.
		h.mu.Lock()
		h.revision = "r2"
		h.mu.Unlock()
		items[0].Metadata = map[string]any{"x": 1}
	})
	require.ErrorIs(t, err, scene.ErrConflict)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Zero(t, h.puts)
}

func TestClient_UpdateItemsRejectsIDChange(t *testing.T) {
	h := &fakeHost{t: t, revision: "r1", items: map[string]scene.Item{"a": {ID: "a"}}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	err := testClient(srv.URL).UpdateItems(context.Background(), []string{"a"}, func(items []*scene.Item) {
		items[0].ID = "b"
	})
	require.ErrorIs(t, err, ErrIDChanged)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Zero(t, h.puts)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("permission denied\n"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Selection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403: permission denied")

	assert.Error(t, c.CheckReadiness(context.Background()))
}

func TestClient_PutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set(headerContentType, contentTypeJSON)
			_, _ = w.Write([]byte(`[{"id":"a"}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := testClient(srv.URL).UpdateItems(context.Background(), []string{"a"}, func([]*scene.Item) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Selection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
