package stats

import (
	"sort"

	"github.com/kevinburke/quartiere"
)

// ZoneCount summarizes the neighbourhoods of one zoning class.
type ZoneCount struct {
	Zone       quartiere.Zone
	Label      string
	Count      int
	Population float64
	Area       float64
}

// Density returns inhabitants per unit of area, or zero for an empty area.
func (z *ZoneCount) Density() float64 {
	if z.Area == 0 {
		return 0
	}
	return z.Population / z.Area
}

// ByZone groups neighbourhoods by zoning class. Known classes come first, in
// legend order, followed by unknown classes sorted by name. Classes with no
// neighbourhoods are left out.
func ByZone(ns []*quartiere.Neighbourhood) []*ZoneCount {
	mp := make(map[quartiere.Zone]*ZoneCount)
	for _, n := range ns {
		zc, ok := mp[n.Zone]
		if !ok {
			zc = &ZoneCount{Zone: n.Zone, Label: n.Zone.Label()}
			mp[n.Zone] = zc
		}
		zc.Count++
		zc.Population += n.Population
		zc.Area += n.Area
	}
	result := make([]*ZoneCount, 0, len(mp))
	for _, z := range quartiere.Zones {
		if zc, ok := mp[z]; ok {
			result = append(result, zc)
		}
	}
	unknown := make([]*ZoneCount, 0)
	for z, zc := range mp {
		if !z.Known() {
			unknown = append(unknown, zc)
		}
	}
	sort.Slice(unknown, func(i, j int) bool {
		return unknown[i].Zone < unknown[j].Zone
	})
	return append(result, unknown...)
}

// Totals sums a set of zone counts.
func Totals(zcs []*ZoneCount) *ZoneCount {
	t := &ZoneCount{Label: "Total"}
	for _, zc := range zcs {
		t.Count += zc.Count
		t.Population += zc.Population
		t.Area += zc.Area
	}
	return t
}
