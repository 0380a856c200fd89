// Package tiles cuts a FeatureCollection into Mapbox Vector Tiles on demand.
//
// An Index keeps the source features and their bounds. Asking for a tile
// selects the features that touch the (buffered) tile, projects them into
// tile coordinates, clips, simplifies and encodes them. Encoded tiles are kept
// in a small LRU cache.
package tiles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"
)

// ErrInvalidTile is returned for tile addresses outside the pyramid.
var ErrInvalidTile = errors.New("tiles: invalid tile address")

// Options control how tiles are cut. Zero values are replaced by the
// defaults below.
type Options struct {
	// Deepest zoom level served. Default 23.
	MaxZoom int
	// Buffer around each tile, in tile pixels. Default 64.
	Buffer int
	// Tile extent. Default 4096.
	Extent uint32
	// Douglas-Peucker tolerance in tile pixels. Not applied at MaxZoom.
	// Default 10; negative disables simplification.
	Tolerance float64
	// Name of the single layer in every tile. Default "neighbourhood".
	Layer string
	// Number of encoded tiles kept in memory. Default 1024; negative
	// disables the cache.
	CacheSize int
}

const (
	DefaultMaxZoom   = 23
	DefaultBuffer    = 64
	DefaultExtent    = mvt.DefaultExtent
	DefaultTolerance = 10
	DefaultLayer     = "neighbourhood"
	DefaultCacheSize = 1024

	// maptile works with uint32 tile numbers.
	maxZoomLimit = 32
)

func (o Options) withDefaults() Options {
	if o.MaxZoom <= 0 {
		o.MaxZoom = DefaultMaxZoom
	}
	if o.MaxZoom >= maxZoomLimit {
		o.MaxZoom = maxZoomLimit - 1
	}
	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}
	if o.Extent == 0 {
		o.Extent = DefaultExtent
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Layer == "" {
		o.Layer = DefaultLayer
	}
	if o.CacheSize == 0 {
		o.CacheSize = DefaultCacheSize
	}
	return o
}

type Index struct {
	opts     Options
	features []*geojson.Feature
	bounds   []orb.Bound

	mu    sync.Mutex
	cache *lru.Cache
}

// NewIndex builds an index over the features of fc. Features without a
// geometry are ignored. The index does not modify fc.
func NewIndex(fc *geojson.FeatureCollection, opts Options) *Index {
	opts = opts.withDefaults()
	idx := &Index{
		opts:     opts,
		features: make([]*geojson.Feature, 0, len(fc.Features)),
		bounds:   make([]orb.Bound, 0, len(fc.Features)),
	}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		idx.features = append(idx.features, f)
		idx.bounds = append(idx.bounds, f.Geometry.Bound())
	}
	if opts.CacheSize > 0 {
		idx.cache = lru.New(opts.CacheSize)
	}
	return idx
}

// Options returns the options in use, with defaults filled in.
func (idx *Index) Options() Options {
	return idx.opts
}

// Len returns the number of indexed features.
func (idx *Index) Len() int {
	return len(idx.features)
}

// Valid reports whether t is inside the pyramid served by idx.
func (idx *Index) Valid(t maptile.Tile) bool {
	if int(t.Z) > idx.opts.MaxZoom {
		return false
	}
	max := uint64(1) << uint64(t.Z)
	return uint64(t.X) < max && uint64(t.Y) < max
}

// Tile returns the encoded tile at z/x/y. It returns nil and no error if no
// feature touches the tile.
func (idx *Index) Tile(z, x, y uint32) ([]byte, error) {
	if z >= maxZoomLimit {
		return nil, ErrInvalidTile
	}
	t := maptile.New(x, y, maptile.Zoom(z))
	if !idx.Valid(t) {
		return nil, ErrInvalidTile
	}
	if data, ok := idx.cached(t); ok {
		return data, nil
	}
	data, err := idx.render(t, idx.lookup(idx.filter(t, idx.all())))
	if err != nil {
		return nil, fmt.Errorf("tiles: rendering %d/%d/%d: %w", z, x, y, err)
	}
	idx.store(t, data)
	return data, nil
}

func (idx *Index) cached(t maptile.Tile) ([]byte, bool) {
	if idx.cache == nil {
		return nil, false
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	v, ok := idx.cache.Get(t)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (idx *Index) store(t maptile.Tile, data []byte) {
	if idx.cache == nil {
		return
	}
	idx.mu.Lock()
	idx.cache.Add(t, data)
	idx.mu.Unlock()
}

func (idx *Index) render(t maptile.Tile, fs []*geojson.Feature) ([]byte, error) {
	if len(fs) == 0 {
		return nil, nil
	}
	fc := geojson.NewFeatureCollection()
	for _, f := range fs {
		// ProjectToTile rewrites geometries in place.
		nf := geojson.NewFeature(orb.Clone(f.Geometry))
		nf.Properties = tileProperties(f.Properties)
		fc.Append(nf)
	}
	layer := mvt.NewLayer(idx.opts.Layer, fc)
	layer.Extent = idx.opts.Extent
	layer.ProjectToTile(t)

	layers := mvt.Layers{layer}
	b, e := float64(idx.opts.Buffer), float64(idx.opts.Extent)
	layers.Clip(orb.Bound{Min: orb.Point{-b, -b}, Max: orb.Point{e + b, e + b}})
	if int(t.Z) < idx.opts.MaxZoom && idx.opts.Tolerance > 0 {
		layers.Simplify(simplify.DouglasPeucker(idx.opts.Tolerance))
	}
	layers.RemoveEmpty(1.0, 1.0)
	if len(layer.Features) == 0 {
		return nil, nil
	}
	return mvt.Marshal(layers)
}

// tileProperties copies p keeping only values a vector tile can carry.
// Nested objects are flattened to their string form; nulls are dropped.
func tileProperties(p geojson.Properties) geojson.Properties {
	out := make(geojson.Properties, len(p))
	for k, v := range p {
		switch v := v.(type) {
		case nil:
		case string, bool, float64, float32, int, int64, uint64:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
