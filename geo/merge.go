package geo

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultPrecision is the number of decimal digits kept in merged
// coordinates. Five digits is roughly one meter.
const DefaultPrecision = 5

// Members of a WFS response that describe a single page. They are dropped
// when pages are merged because they no longer describe the result.
var pageMembers = []string{
	"numberMatched",
	"numberReturned",
	"totalFeatures",
	"timeStamp",
}

// Round rounds every coordinate of every feature in fc to precision decimal
// digits, in place.
func Round(fc *geojson.FeatureCollection, precision int) {
	factor := int(math.Pow10(precision))
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		f.Geometry = orb.Round(f.Geometry, factor)
	}
}

// Merge concatenates the features of all chunks into a new collection. The
// foreign members of the first chunk (e.g. "crs") are carried over. Merging
// zero chunks returns an empty collection.
func Merge(chunks ...*geojson.FeatureCollection) *geojson.FeatureCollection {
	merged := geojson.NewFeatureCollection()
	n := 0
	for _, c := range chunks {
		n += len(c.Features)
	}
	merged.Features = make([]*geojson.Feature, 0, n)
	for i, c := range chunks {
		if i == 0 && len(c.ExtraMembers) > 0 {
			merged.ExtraMembers = c.ExtraMembers.Clone()
			for _, key := range pageMembers {
				delete(merged.ExtraMembers, key)
			}
		}
		merged.Features = append(merged.Features, c.Features...)
	}
	return merged
}

// MergeDir reads every chunk file in dir, rounds the coordinates to precision
// digits and merges the result.
func MergeDir(ctx context.Context, dir string, precision int) (*geojson.FeatureCollection, error) {
	paths, err := ChunkFiles(dir)
	if err != nil {
		return nil, err
	}
	chunks, err := ReadChunks(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		Round(c, precision)
	}
	return Merge(chunks...), nil
}

// WriteFile writes fc to path as compact JSON, creating the parent directory
// if necessary.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
