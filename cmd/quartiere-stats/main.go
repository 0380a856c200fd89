package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/kevinburke/quartiere"
	"github.com/kevinburke/quartiere/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func write(w io.Writer, p *message.Printer, zcs []*stats.ZoneCount) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "Zone\tQuartiere\tEinwohner\tFläche\tDichte\t\n")
	row := func(zc *stats.ZoneCount) {
		p.Fprintf(tw, "%s\t%d\t%.0f\t%.2f\t%.1f\t\n", zc.Label, zc.Count, zc.Population, zc.Area, zc.Density())
	}
	for _, zc := range zcs {
		row(zc)
	}
	row(stats.Totals(zcs))
	return tw.Flush()
}

func main() {
	lang := flag.String("lang", "de-CH", "Language tag used to format numbers")
	flag.Parse()
	path := flag.Arg(0)
	if path == "" {
		path = "public/data.json"
	}
	tag, err := language.Parse(*lang)
	if err != nil {
		log.Fatalf("bad language %q: %v", *lang, err)
	}
	fc, err := quartiere.LoadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	ns, err := quartiere.Neighbourhoods(fc)
	if err != nil {
		log.Fatal(err)
	}
	if len(ns) == 0 {
		fmt.Fprintf(os.Stderr, "no neighbourhoods in %s\n", path)
		os.Exit(1)
	}
	if err := write(os.Stdout, message.NewPrinter(tag), stats.ByZone(ns)); err != nil {
		log.Fatal(err)
	}
}
