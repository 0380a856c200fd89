package quartiere

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type region struct {
	n     *Neighbourhood
	bound orb.Bound
	polys []*s2.Polygon
}

// Lookup finds the neighbourhood containing a point.
type Lookup struct {
	regions []*region
}

// NewLookup builds a Lookup over every Polygon and MultiPolygon feature in fc.
// Features with other geometry types are skipped.
func NewLookup(fc *geojson.FeatureCollection) (*Lookup, error) {
	ns, err := Neighbourhoods(fc)
	if err != nil {
		return nil, err
	}
	l := &Lookup{regions: make([]*region, 0, len(ns))}
	for _, n := range ns {
		var polys []orb.Polygon
		switch g := n.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			continue
		}
		r := &region{n: n, bound: n.Geometry.Bound()}
		for _, p := range polys {
			if sp := s2Polygon(p); sp != nil {
				r.polys = append(r.polys, sp)
			}
		}
		if len(r.polys) > 0 {
			l.regions = append(l.regions, r)
		}
	}
	return l, nil
}

// Find returns the neighbourhood containing the given point, or nil if no
// neighbourhood does.
func (l *Lookup) Find(lat, long float64) *Neighbourhood {
	pt := orb.Point{long, lat}
	sp := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, long))
	for _, r := range l.regions {
		if !r.bound.Contains(pt) {
			continue
		}
		for _, p := range r.polys {
			if p.ContainsPoint(sp) {
				return r.n
			}
		}
	}
	return nil
}

// Len returns the number of neighbourhoods in the lookup.
func (l *Lookup) Len() int {
	return len(l.regions)
}

func s2Polygon(p orb.Polygon) *s2.Polygon {
	loops := make([]*s2.Loop, 0, len(p))
	for i, ring := range p {
		pts := s2Points(ring)
		if len(pts) < 3 {
			if i == 0 {
				return nil
			}
			continue
		}
		loop := s2.LoopFromPoints(pts)
		// PolygonFromOrientedLoops wants the interior on the left of every
		// loop, so shells go counterclockwise and holes clockwise, whatever
		// winding the source used.
		loop.Normalize()
		if i > 0 {
			loop.Invert()
		}
		loops = append(loops, loop)
	}
	return s2.PolygonFromOrientedLoops(loops)
}

func s2Points(ring orb.Ring) []s2.Point {
	pts := make([]s2.Point, 0, len(ring))
	for i, p := range ring {
		// golang/geo does not like having the loop end in the same point
		if i == len(ring)-1 && p.Equal(ring[0]) {
			continue
		}
		if i > 0 && p.Equal(ring[i-1]) {
			continue
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(p[1], p[0])))
	}
	return pts
}
