package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Orient winds p the way RFC 7946 asks for: exterior ring counterclockwise,
// holes clockwise. Rings are reversed in place when needed.
func Orient(p orb.Polygon) {
	for j := range p {
		want := orb.CCW
		if j > 0 {
			want = orb.CW
		}
		if o := p[j].Orientation(); o != 0 && o != want {
			p[j].Reverse()
		}
	}
}

// RewindFeatures orients every Polygon and MultiPolygon in fc and returns the
// number of features that were changed. The GeoJSON we get from the WFS server
// follows the older convention of clockwise shells.
func RewindFeatures(fc *geojson.FeatureCollection) int {
	changed := 0
	for _, f := range fc.Features {
		var polys []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			continue
		}
		before := orientations(polys)
		for _, p := range polys {
			Orient(p)
		}
		if before != orientations(polys) {
			changed++
		}
	}
	return changed
}

func orientations(polys []orb.Polygon) string {
	b := make([]byte, 0, len(polys))
	for _, p := range polys {
		for _, r := range p {
			if r.Orientation() == orb.CCW {
				b = append(b, '+')
			} else {
				b = append(b, '-')
			}
		}
	}
	return string(b)
}
