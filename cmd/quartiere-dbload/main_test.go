package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/kevinburke/quartiere"
)

func TestNewRow(t *testing.T) {
	fc, err := quartiere.LoadFile(filepath.Join("..", "..", "testdata", "golden.json"))
	if err != nil {
		t.Fatal(err)
	}
	ns, err := quartiere.Neighbourhoods(fc)
	if err != nil {
		t.Fatal(err)
	}
	r, err := newRow(ns[0])
	if err != nil {
		t.Fatal(err)
	}
	if r.Municipality != "Zürich" || r.Population != 1234 {
		t.Errorf("bad row: %+v", r)
	}
	var geom struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(r.Geometry, &geom); err != nil {
		t.Fatal(err)
	}
	if geom.Type != "Polygon" {
		t.Errorf("expected a Polygon, got %q", geom.Type)
	}
	var props map[string]interface{}
	if err := json.Unmarshal(r.Properties, &props); err != nil {
		t.Fatal(err)
	}
	if props[quartiere.PropZone] != string(ns[0].Zone) {
		t.Errorf("properties lost the zone: %v", props)
	}
}
