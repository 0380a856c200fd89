// quartiere-fetch downloads the statistical neighbourhoods from the WFS
// server, one page at a time, into data/chunk-<n>.json.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/kevinburke/handlers"
	"github.com/kevinburke/quartiere/client"
)

var logger log.Logger = handlers.Logger

func main() {
	dataDir := flag.String("data", "data", "Directory to write chunk files to")
	host := flag.String("host", client.Host, "WFS server to query")
	typeName := flag.String("type-name", client.TypeName, "WFS feature type to fetch")
	count := flag.Int("count", client.DefaultCount, "Number of features per request")
	cacheTTL := flag.Duration("cache-ttl", 0, "Reuse chunk files younger than this instead of fetching them again")
	timeout := flag.Duration("timeout", 10*time.Minute, "Give up after this long")
	flag.Parse()

	if *count <= 0 {
		logger.Error("count must be positive", "count", *count)
		os.Exit(2)
	}
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("Could not create data directory", "dir", *dataDir, "err", err)
		os.Exit(2)
	}
	lockfile, err := os.Create(filepath.Join(*dataDir, "fetch.lock"))
	if err != nil {
		logger.Error("Could not create lock file", "err", err)
		os.Exit(2)
	}
	if err := lock(lockfile); err != nil {
		logger.Error("Could not lock data directory", "dir", *dataDir, "err", err)
		os.Exit(2)
	}
	defer func() {
		unlock(lockfile)
		lockfile.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	c := client.NewClientWithHost(*host)
	c.Features.TypeName = *typeName
	c.Features.Count = *count
	c.Features.CacheTTL = *cacheTTL
	c.Features.DataDir = *dataDir

	start := time.Now()
	features := 0
	n, err := c.Features.WriteChunks(ctx, func(chunk *client.Chunk) {
		features += len(chunk.Collection.Features)
		logger.Info("Fetched chunk", "index", chunk.Index, "features", len(chunk.Collection.Features), "cached", chunk.Cached)
	})
	if err != nil {
		logger.Error("Fetch failed", "chunks", n, "err", err)
		unlock(lockfile)
		os.Exit(1)
	}
	logger.Info("Done", "chunks", n, "features", features, "dir", *dataDir,
		"time", time.Since(start).Round(time.Millisecond))
}
