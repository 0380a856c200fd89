package quartiere

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const Version = "0.3"

// Property keys used by the statistical neighbourhood dataset.
const (
	PropRegion       = "u_region"
	PropMunicipality = "u_gemeinde"
	PropPopulation   = "u_einw"
	PropArea         = "u_flaeche"
	PropZone         = "einf"
)

// A Neighbourhood is a single statistical neighbourhood polygon along with the
// attributes we know how to display. Properties holds every attribute from the
// source feature, including the ones copied into the named fields.
type Neighbourhood struct {
	Region       string
	Municipality string
	Population   float64
	Area         float64
	Zone         Zone

	Properties geojson.Properties
	Geometry   orb.Geometry
}

// NewNeighbourhood reads the known attributes out of f. Missing attributes are
// left at their zero value; numeric attributes may be JSON numbers or numeric
// strings.
func NewNeighbourhood(f *geojson.Feature) (*Neighbourhood, error) {
	n := &Neighbourhood{
		Properties: f.Properties,
		Geometry:   f.Geometry,
	}
	if f.Properties == nil {
		return n, nil
	}
	n.Region = stringProp(f.Properties, PropRegion)
	n.Municipality = stringProp(f.Properties, PropMunicipality)
	n.Zone = Zone(stringProp(f.Properties, PropZone))
	var err error
	n.Population, err = numberProp(f.Properties, PropPopulation)
	if err != nil {
		return nil, err
	}
	n.Area, err = numberProp(f.Properties, PropArea)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func stringProp(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func numberProp(p geojson.Properties, key string) (float64, error) {
	switch v := p[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("property %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("property %q: unexpected type %T", key, v)
	}
}

// Load reads a GeoJSON FeatureCollection from rdr.
func Load(rdr io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(rdr)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(data)
}

// LoadFile reads the merged FeatureCollection at path.
func LoadFile(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return fc, nil
}

// Neighbourhoods converts every feature in fc.
func Neighbourhoods(fc *geojson.FeatureCollection) ([]*Neighbourhood, error) {
	ns := make([]*Neighbourhood, len(fc.Features))
	for i := range fc.Features {
		n, err := NewNeighbourhood(fc.Features[i])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		ns[i] = n
	}
	return ns, nil
}
