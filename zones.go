package quartiere

import "strconv"

// A Zone is the dominant zoning class of a neighbourhood (the "einf"
// attribute).
type Zone string

const (
	ZoneResidentialLow  Zone = "wohnzone_bis_W2"
	ZoneResidentialHigh Zone = "wohnene_ab_W3"
	ZoneMixed           Zone = "mischzone"
	ZonePublic          Zone = "zone_fuer_oeffentliche_bauten"
	ZoneIndustrial      Zone = "industriezone"
	ZoneNonBuilding     Zone = "keine_bauzone"
)

// Zones lists the known zoning classes in legend order.
var Zones = []Zone{
	ZoneResidentialLow,
	ZoneResidentialHigh,
	ZoneMixed,
	ZonePublic,
	ZoneIndustrial,
	ZoneNonBuilding,
}

// Color is an RGB triple. It encodes to JSON as a three element array, which is
// what deck.gl expects from an accessor.
type Color [3]uint8

// DefaultColor is used for zoning classes we don't know about.
var DefaultColor = Color{240, 240, 240}

func (c Color) CSS() string {
	return "rgb(" + strconv.Itoa(int(c[0])) + "," + strconv.Itoa(int(c[1])) + "," + strconv.Itoa(int(c[2])) + ")"
}

var zoneLabels = map[Zone]string{
	ZoneResidentialLow:  "Wohnzone W1/W2",
	ZoneResidentialHigh: "Wohnzonen W3 und höher",
	ZoneMixed:           "Mischzone",
	ZonePublic:          "Zone für öffentliche Bauten",
	ZoneIndustrial:      "Industriezone",
	ZoneNonBuilding:     "Keine Bauzone",
}

var zoneColors = map[Zone]Color{
	ZoneResidentialLow:  {238, 123, 28},
	ZoneResidentialHigh: {229, 61, 37},
	ZoneMixed:           {155, 83, 181},
	ZonePublic:          {67, 169, 98},
	ZoneIndustrial:      {28, 160, 236},
	ZoneNonBuilding:     {236, 236, 236},
}

// Known reports whether z is one of the classes in Zones.
func (z Zone) Known() bool {
	_, ok := zoneLabels[z]
	return ok
}

// Label returns the legend label for z, or the raw class name if z is unknown.
func (z Zone) Label() string {
	if l, ok := zoneLabels[z]; ok {
		return l
	}
	return string(z)
}

func (z Zone) Color() Color {
	if c, ok := zoneColors[z]; ok {
		return c
	}
	return DefaultColor
}
