// quartiere-merge combines the chunk files written by quartiere-fetch into a
// single GeoJSON file with rounded coordinates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kevinburke/quartiere/geo"
)

func run(ctx context.Context, dataDir, out string, precision int, rewind bool) error {
	paths, err := geo.ChunkFiles(dataDir)
	if err != nil {
		return err
	}
	chunks, err := geo.ReadChunks(ctx, paths)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		geo.Round(c, precision)
	}
	merged := geo.Merge(chunks...)
	if rewind {
		n := geo.RewindFeatures(merged)
		fmt.Fprintf(os.Stderr, "rewound %d features\n", n)
	}
	if err := geo.WriteFile(out, merged); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "merged %d chunks, %d features into %s\n", len(chunks), len(merged.Features), out)
	return nil
}

func main() {
	dataDir := flag.String("data", "data", "Directory holding chunk-<n>.json files")
	out := flag.String("out", "public/data.json", "Path of the merged file")
	precision := flag.Int("precision", geo.DefaultPrecision, "Number of decimal digits to keep in coordinates")
	rewind := flag.Bool("rewind", false, "Wind polygons counterclockwise (RFC 7946)")
	flag.Parse()

	if *precision < 0 || *precision > 15 {
		log.Fatalf("precision out of range: %d", *precision)
	}
	if err := run(context.Background(), *dataDir, *out, *precision, *rewind); err != nil {
		log.Fatal(err)
	}
}
