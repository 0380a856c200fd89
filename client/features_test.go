package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevinburke/quartiere/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// wfsServer serves total features, pageSize at most per page, and records the
// startIndex of every request.
type wfsServer struct {
	total int

	mu      sync.Mutex
	starts  []int
	queries []string
}

func (s *wfsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != Path {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	start, err := strconv.Atoi(q.Get("startIndex"))
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	count, err := strconv.Atoi(q.Get("count"))
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	s.mu.Lock()
	s.starts = append(s.starts, start)
	s.queries = append(s.queries, r.URL.RawQuery)
	total := s.total
	s.mu.Unlock()
	fc := geojson.NewFeatureCollection()
	for i := start; i < start+count && i < total; i++ {
		f := geojson.NewFeature(orb.Polygon{{{8.5, 47.3}, {8.6, 47.3}, {8.6, 47.4}, {8.5, 47.3}}})
		f.Properties["n"] = i
		fc.Append(f)
	}
	w.Header().Set("Content-Type", "application/json; subtype=geojson")
	json.NewEncoder(w).Encode(fc)
}

func newTestClient(t *testing.T, total int) (*Client, *wfsServer) {
	t.Helper()
	ws := &wfsServer{total: total}
	srv := httptest.NewServer(ws)
	t.Cleanup(srv.Close)
	c := NewClientWithHost(srv.URL)
	c.Features.Count = 2
	c.Features.DataDir = t.TempDir()
	return c, ws
}

func TestQuery(t *testing.T) {
	c := NewClient()
	q := c.Features.Query(2000, 1000)
	if got := q.Get("TYPENAME"); got != TypeName {
		t.Errorf("bad type name %q", got)
	}
	if got := q.Get("startIndex"); got != "2000" {
		t.Errorf("bad startIndex %q", got)
	}
	if got := q.Get("SRSNAME"); got != "urn:ogc:def:crs:EPSG::4326" {
		t.Errorf("bad SRS %q", got)
	}
}

func TestFetchStopsAtEmptyPage(t *testing.T) {
	c, ws := newTestClient(t, 5)
	var sizes []int
	err := c.Features.Fetch(context.Background(), func(chunk *Chunk) error {
		if chunk.Index != len(sizes) {
			t.Errorf("expected chunk %d, got %d", len(sizes), chunk.Index)
		}
		sizes = append(sizes, len(chunk.Collection.Features))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("bad page sizes: %v", sizes)
	}
	want := []int{0, 2, 4, 6}
	if len(ws.starts) != len(want) {
		t.Fatalf("expected %d requests, got %d (%v)", len(want), len(ws.starts), ws.starts)
	}
	for i := range want {
		if ws.starts[i] != want[i] {
			t.Errorf("request %d: startIndex %d, want %d", i, ws.starts[i], want[i])
		}
	}
	if !strings.Contains(ws.queries[0], "REQUEST=GetFeature") {
		t.Errorf("query is missing the request type: %s", ws.queries[0])
	}
}

func TestWriteChunks(t *testing.T) {
	c, _ := newTestClient(t, 4)
	n, err := c.Features.WriteChunks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chunks, got %d", n)
	}
	paths, err := geo.ChunkFiles(c.Features.DataDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 chunk files, got %v", paths)
	}
	// the empty page must not leave a file behind
	if _, err := os.Stat(filepath.Join(c.Features.DataDir, "chunk-2.json")); !os.IsNotExist(err) {
		t.Errorf("expected no file for the empty page, got err %v", err)
	}
	fc, err := geo.ReadChunk(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features in the second chunk, got %d", len(fc.Features))
	}
}

func TestWriteChunksNothing(t *testing.T) {
	c, ws := newTestClient(t, 0)
	n, err := c.Features.WriteChunks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 chunks, got %d", n)
	}
	if len(ws.starts) != 1 {
		t.Errorf("expected a single request, got %d", len(ws.starts))
	}
}

func TestFetchUsesCache(t *testing.T) {
	c, ws := newTestClient(t, 3)
	c.Features.CacheTTL = time.Hour
	if _, err := c.Features.WriteChunks(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	first := len(ws.starts)
	cached := 0
	n, err := c.Features.WriteChunks(context.Background(), func(chunk *Chunk) {
		if chunk.Cached {
			cached++
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || cached != 2 {
		t.Errorf("expected 2 cached chunks, got %d of %d", cached, n)
	}
	// only the terminating empty page is requested again
	if got := len(ws.starts) - first; got != 1 {
		t.Errorf("expected 1 new request, got %d", got)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(500)
		w.Write([]byte(`{"title":"internal error","status":500}`))
	}))
	defer srv.Close()
	c := NewClientWithHost(srv.URL)
	c.Features.DataDir = t.TempDir()
	n, err := c.Features.WriteChunks(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var cerr *ChunkError
	if !errors.As(err, &cerr) || cerr.Index != 0 {
		t.Errorf("expected a ChunkError for chunk 0, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected no chunks, got %d", n)
	}
}

func TestFetchCallbackError(t *testing.T) {
	c, ws := newTestClient(t, 10)
	stop := errors.New("stop")
	err := c.Features.Fetch(context.Background(), func(chunk *Chunk) error {
		return stop
	})
	if err != stop {
		t.Errorf("expected the callback error, got %v", err)
	}
	if len(ws.starts) != 1 {
		t.Errorf("expected 1 request, got %d", len(ws.starts))
	}
}

func TestFetchCanceled(t *testing.T) {
	c, _ := newTestClient(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Features.Fetch(ctx, func(*Chunk) error { return nil }); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func mergedIDs(t *testing.T, dir string) []int {
	t.Helper()
	fc, err := geo.MergeDir(context.Background(), dir, geo.DefaultPrecision)
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]int, len(fc.Features))
	for i, f := range fc.Features {
		ids[i] = int(f.Properties.MustFloat64("n"))
	}
	return ids
}

func TestWriteChunksCountChanged(t *testing.T) {
	c, ws := newTestClient(t, 5)
	c.Features.CacheTTL = time.Hour
	if _, err := c.Features.WriteChunks(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	c.Features.Count = 3
	first := len(ws.starts)
	n, err := c.Features.WriteChunks(context.Background(), func(chunk *Chunk) {
		if chunk.Cached {
			t.Errorf("chunk %d came from the cache after the page size changed", chunk.Index)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 chunks, got %d", n)
	}
	want := []int{0, 3, 6}
	got := ws.starts[first:]
	if len(got) != len(want) {
		t.Fatalf("expected requests at %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d: startIndex %d, want %d", i, got[i], want[i])
		}
	}
	ids := mergedIDs(t, c.Features.DataDir)
	if len(ids) != 5 {
		t.Fatalf("expected 5 merged features, got %v", ids)
	}
	for i, id := range ids {
		if id != i {
			t.Errorf("feature %d: got id %d", i, id)
		}
	}
}

func TestWriteChunksRemovesStale(t *testing.T) {
	c, ws := newTestClient(t, 5)
	if _, err := c.Features.WriteChunks(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	ws.mu.Lock()
	ws.total = 3
	ws.mu.Unlock()
	n, err := c.Features.WriteChunks(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 chunks, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(c.Features.DataDir, "chunk-2.json")); !os.IsNotExist(err) {
		t.Errorf("expected chunk-2.json to be removed, got err %v", err)
	}
	if ids := mergedIDs(t, c.Features.DataDir); len(ids) != 3 {
		t.Errorf("expected 3 merged features, got %v", ids)
	}
}
