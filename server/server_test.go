package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/kevinburke/quartiere/tiles"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
)

func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	data, err := LoadData(filepath.Join("..", "testdata", "golden.json"), tiles.Options{MaxZoom: 16})
	if err != nil {
		t.Fatal(err)
	}
	return NewServeMux(data)
}

func get(t *testing.T, mux http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func tilePath(tile maptile.Tile) string {
	return "/tiles/" + strconv.Itoa(int(tile.Z)) + "/" + strconv.FormatUint(uint64(tile.X), 10) + "/" + strconv.FormatUint(uint64(tile.Y), 10) + ".pbf"
}

func TestHomepage(t *testing.T) {
	mux := newTestMux(t)
	w := get(t, mux, "/")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"<zh-app>", "Mischzone", "rgb(229,61,37)", `/tiles/{z}/{x}/{y}.pbf`, `"dataURL":"./data.json"`, "/static/app.js?s="} {
		if !strings.Contains(body, want) {
			t.Errorf("homepage is missing %q", want)
		}
	}
}

func TestStatic(t *testing.T) {
	mux := newTestMux(t)
	w := get(t, mux, "/static/app.js?s=abc")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Expires") == "" {
		t.Errorf("expected a far future Expires header")
	}
	if !strings.Contains(w.Body.String(), `customElements.define("zh-app"`) {
		t.Errorf("app.js does not define zh-app")
	}
	if w := get(t, mux, "/static/nope.js"); w.Code != 404 {
		t.Errorf("expected 404 for a missing asset, got %d", w.Code)
	}
}

func TestTileRoute(t *testing.T) {
	mux := newTestMux(t)
	w := get(t, mux, tilePath(maptile.At(orb.Point{8.52, 47.37}, 11)))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.mapbox-vector-tile" {
		t.Errorf("bad content type %q", ct)
	}
	layers, err := mvt.Unmarshal(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 1 || len(layers[0].Features) == 0 {
		t.Errorf("expected features in the tile")
	}

	if w := get(t, mux, tilePath(maptile.At(orb.Point{-100, 40}, 11))); w.Code != 204 {
		t.Errorf("expected 204 for an empty tile, got %d", w.Code)
	}
	if w := get(t, mux, "/tiles/17/0/0.pbf"); w.Code != 404 {
		t.Errorf("expected 404 past max zoom, got %d", w.Code)
	}
	if w := get(t, mux, "/tiles/1/5/0.pbf"); w.Code != 404 {
		t.Errorf("expected 404 for an out of range tile, got %d", w.Code)
	}
}

func TestDataJSON(t *testing.T) {
	mux := newTestMux(t)
	w := get(t, mux, "/data.json")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Type != "FeatureCollection" || len(body.Features) != 3 {
		t.Errorf("bad data.json: type %q, %d features", body.Type, len(body.Features))
	}
}

func TestZones(t *testing.T) {
	mux := newTestMux(t)
	w := get(t, mux, "/api/zones")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var zones []zoneJSON
	if err := json.Unmarshal(w.Body.Bytes(), &zones); err != nil {
		t.Fatal(err)
	}
	if len(zones) != 6 {
		t.Fatalf("expected 6 zones, got %d", len(zones))
	}
	if zones[0].Label != "Wohnzone W1/W2" || zones[0].Color[0] != 238 {
		t.Errorf("bad first zone: %+v", zones[0])
	}
}

func TestNeighbourhood(t *testing.T) {
	mux := newTestMux(t)
	w := get(t, mux, "/api/neighbourhood?lat=47.37&lon=8.52")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var n neighbourhoodJSON
	if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	if n.Municipality != "Zürich" || n.Population != 1234 {
		t.Errorf("bad neighbourhood: %+v", n)
	}

	tests := []struct {
		query string
		code  int
	}{
		{"lat=46.2&lon=6.14", 404},
		{"lat=abc&lon=8.52", 400},
		{"lon=8.52", 400},
		{"lat=47.37&lon=200", 400},
		{"lat=NaN&lon=8.52", 400},
		{"lat=47.37&lon=nan", 400},
		{"lat=Inf&lon=8.52", 400},
	}
	for _, tt := range tests {
		if w := get(t, mux, "/api/neighbourhood?"+tt.query); w.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.code, w.Code)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	mux := newTestMux(t)
	if w := get(t, mux, "/nope"); w.Code != 404 {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
