package main

import (
	"os"
	"path/filepath"
	"testing"

	yaml "gopkg.in/yaml.v2"
)

func TestExampleConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "config.yml"))
	if err != nil {
		t.Fatal(err)
	}
	c := new(FileConfig)
	if err := yaml.Unmarshal(data, c); err != nil {
		t.Fatal(err)
	}
	if c.Port == nil || *c.Port != 7065 {
		t.Errorf("bad port %v", c.Port)
	}
	if !c.HTTPOnly {
		t.Errorf("example config should serve plain HTTP")
	}
	opts := c.tileOptions()
	if opts.MaxZoom != 23 || opts.Buffer != 64 || opts.Extent != 4096 || opts.Tolerance != 10 {
		t.Errorf("bad tile options: %+v", opts)
	}
}
