package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kevinburke/quartiere"
	"github.com/kevinburke/quartiere/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestWrite(t *testing.T) {
	ns := []*quartiere.Neighbourhood{
		{Zone: quartiere.ZoneMixed, Population: 12345, Area: 10},
		{Zone: quartiere.ZoneMixed, Population: 1000, Area: 5},
	}
	buf := new(bytes.Buffer)
	if err := write(buf, message.NewPrinter(language.English), stats.ByZone(ns)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Mischzone") {
		t.Errorf("missing zone label:\n%s", out)
	}
	if !strings.Contains(out, "13,345") {
		t.Errorf("expected a grouped population total:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("expected a header, one zone and a total, got %d lines:\n%s", lines, out)
	}
}
