// quartiere-tiles writes every non-empty vector tile of the merged data file
// to <out>/<z>/<x>/<y>.pbf, for hosting the map without quartiere-server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/kevinburke/quartiere"
	"github.com/kevinburke/quartiere/tiles"
	tss "github.com/kevinburke/tss/lib"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

func tilePath(dir string, t maptile.Tile) string {
	return filepath.Join(dir,
		strconv.Itoa(int(t.Z)),
		strconv.FormatUint(uint64(t.X), 10),
		strconv.FormatUint(uint64(t.Y), 10)+".pbf")
}

func writeTile(dir string, t maptile.Tile, data []byte) error {
	path := tilePath(dir, t)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// export walks idx down to maxZoom and writes the tiles under dir, using up
// to workers goroutines for the writes. bar may be nil.
func export(ctx context.Context, idx *tiles.Index, dir string, maxZoom, workers int, bar *progressbar.ProgressBar) (int64, error) {
	if workers < 1 {
		return 0, fmt.Errorf("workers must be at least 1, got %d", workers)
	}
	group, errctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	var written int64
	walkErr := idx.Walk(errctx, maxZoom, func(t maptile.Tile, data []byte) error {
		group.Go(func() error {
			if err := writeTile(dir, t, data); err != nil {
				return err
			}
			atomic.AddInt64(&written, 1)
			return nil
		})
		if bar != nil {
			bar.Add(1)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return written, err
	}
	return written, walkErr
}

func main() {
	in := flag.String("data", "public/data.json", "Merged GeoJSON file")
	out := flag.String("out", "public/tiles", "Directory to write tiles to")
	maxZoom := flag.Int("max-zoom", 14, "Deepest zoom level to export")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of concurrent writers")
	quiet := flag.Bool("quiet", false, "Don't show a progress bar")
	flag.Parse()
	if *workers < 1 {
		fmt.Fprintf(os.Stderr, "-workers must be at least 1, got %d\n", *workers)
		os.Exit(2)
	}

	w := tss.NewWriter(os.Stdout, time.Time{})
	fmt.Fprintf(w, "load %s\n", *in)
	fc, err := quartiere.LoadFile(*in)
	if err != nil {
		log.Fatal(err)
	}
	idx := tiles.NewIndex(fc, tiles.Options{MaxZoom: *maxZoom, CacheSize: -1})
	ctx := context.Background()
	total, err := idx.Count(ctx, *maxZoom)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(w, "indexed %d features, up to %d tiles through zoom %d\n", idx.Len(), total, *maxZoom)

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Cutting tiles"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	n, err := export(ctx, idx, *out, *maxZoom, *workers, bar)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(w, "wrote %d tiles to %s\n", n, *out)
}
