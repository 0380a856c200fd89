// Package geo reads the raw GeoJSON chunks written by the WFS fetcher and
// merges them into a single FeatureCollection.
package geo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

var chunkRx = regexp.MustCompile(`^chunk-(\d+)\.json$`)

// ChunkName returns the file name for the chunk with the given index.
func ChunkName(index int) string {
	return "chunk-" + strconv.Itoa(index) + ".json"
}

// ChunkIndex parses the index out of a chunk file name. ok is false if name is
// not a chunk file.
func ChunkIndex(name string) (index int, ok bool) {
	m := chunkRx.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return i, true
}

// ChunkFiles returns the paths of all chunk files in dir, ordered by chunk
// index, so chunk-2.json sorts before chunk-10.json.
func ChunkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type chunk struct {
		index int
		name  string
	}
	chunks := make([]chunk, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, ok := ChunkIndex(e.Name())
		if !ok {
			continue
		}
		chunks = append(chunks, chunk{idx, e.Name()})
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].index < chunks[j].index
	})
	paths := make([]string, len(chunks))
	for i := range chunks {
		paths[i] = filepath.Join(dir, chunks[i].name)
	}
	return paths, nil
}

// ReadChunk parses a single chunk file.
func ReadChunk(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// ReadChunks reads and parses all of the given files in parallel. The result
// has the same order as paths. The first error cancels the remaining reads.
func ReadChunks(ctx context.Context, paths []string) ([]*geojson.FeatureCollection, error) {
	chunks := make([]*geojson.FeatureCollection, len(paths))
	group, errctx := errgroup.WithContext(ctx)
	for i := range paths {
		i := i
		group.Go(func() error {
			if err := errctx.Err(); err != nil {
				return err
			}
			fc, err := ReadChunk(paths[i])
			if err != nil {
				return err
			}
			chunks[i] = fc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}
