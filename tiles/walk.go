package tiles

import (
	"context"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// Walk visits every non-empty tile from zoom 0 down to maxZoom (capped at the
// index's MaxZoom), parents before children. fn receives the encoded tile.
// Walk only descends into tiles that some feature touches, so the work is
// proportional to the covered area, not to the size of the pyramid.
//
// Tiles produced by Walk are not added to the cache.
func (idx *Index) Walk(ctx context.Context, maxZoom int, fn func(t maptile.Tile, data []byte) error) error {
	if maxZoom > idx.opts.MaxZoom {
		maxZoom = idx.opts.MaxZoom
	}
	type item struct {
		tile       maptile.Tile
		candidates []int
	}
	queue := []item{{tile: maptile.New(0, 0, 0), candidates: idx.all()}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		it := queue[0]
		queue = queue[1:]

		touching := idx.filter(it.tile, it.candidates)
		if len(touching) == 0 {
			continue
		}
		data, err := idx.render(it.tile, idx.lookup(touching))
		if err != nil {
			return err
		}
		if data != nil {
			if err := fn(it.tile, data); err != nil {
				return err
			}
		}
		if int(it.tile.Z) >= maxZoom {
			continue
		}
		for _, child := range it.tile.Children() {
			queue = append(queue, item{tile: child, candidates: touching})
		}
	}
	return nil
}

// Count returns the number of tiles Walk considers for maxZoom. Walk calls
// fn at most this many times; tiles whose features simplify away are skipped.
func (idx *Index) Count(ctx context.Context, maxZoom int) (int, error) {
	n := 0
	err := idx.walkBounds(ctx, maxZoom, func(maptile.Tile) { n++ })
	return n, err
}

// walkBounds is Walk without rendering: it visits every tile some feature
// bound touches.
func (idx *Index) walkBounds(ctx context.Context, maxZoom int, fn func(maptile.Tile)) error {
	if maxZoom > idx.opts.MaxZoom {
		maxZoom = idx.opts.MaxZoom
	}
	var visit func(t maptile.Tile, candidates []int) error
	visit = func(t maptile.Tile, candidates []int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		touching := idx.filter(t, candidates)
		if len(touching) == 0 {
			return nil
		}
		fn(t)
		if int(t.Z) >= maxZoom {
			return nil
		}
		for _, child := range t.Children() {
			if err := visit(child, touching); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(maptile.New(0, 0, 0), idx.all())
}

func (idx *Index) all() []int {
	all := make([]int, len(idx.features))
	for i := range all {
		all[i] = i
	}
	return all
}

func (idx *Index) lookup(ids []int) []*geojson.Feature {
	fs := make([]*geojson.Feature, len(ids))
	for i, id := range ids {
		fs[i] = idx.features[id]
	}
	return fs
}

// filter narrows candidates down to the features touching the buffered tile.
func (idx *Index) filter(t maptile.Tile, candidates []int) []int {
	bound := t.Bound(float64(idx.opts.Buffer) / float64(idx.opts.Extent))
	var touching []int
	for _, i := range candidates {
		if idx.bounds[i].Intersects(bound) {
			touching = append(touching, i)
		}
	}
	return touching
}
