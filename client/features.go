package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kevinburke/quartiere/geo"
	"github.com/paulmach/orb/geojson"
)

const (
	// Path of the WFS endpoint on the server.
	Path = "/wfs/OGDZHWFS"
	// TypeName is the statistical neighbourhood layer.
	TypeName = "ms:ogd-0485_stat_quartiere_f"
	// DefaultCount is the number of features requested per page.
	DefaultCount = 1000

	srsName      = "urn:ogc:def:crs:EPSG::4326"
	outputFormat = "application/json; subtype=geojson"

	// ManifestName is written next to the chunk files and records how they
	// were paged.
	ManifestName = "fetch.json"
)

type FeatureService struct {
	// TypeName of the layer to retrieve. If empty, TypeName is used.
	TypeName string
	// Count is the page size. If zero, DefaultCount is used.
	Count int
	// Set CacheTTL to a nonzero value to load chunks from DataDir instead of
	// requesting them, if the chunk file on disk is younger than the TTL.
	CacheTTL time.Duration
	// Directory holding chunk files on disk, if empty, "data" is assumed.
	DataDir string

	client *Client
}

func (s *FeatureService) typeName() string {
	if s.TypeName == "" {
		return TypeName
	}
	return s.TypeName
}

func (s *FeatureService) count() int {
	if s.Count <= 0 {
		return DefaultCount
	}
	return s.Count
}

func (s *FeatureService) dataDir() string {
	if s.DataDir == "" {
		return "data"
	}
	return s.DataDir
}

// Query returns the GetFeature query for the page starting at startIndex.
func (s *FeatureService) Query(startIndex, count int) url.Values {
	return url.Values{
		"SERVICE":      []string{"WFS"},
		"VERSION":      []string{"2.0.0"},
		"REQUEST":      []string{"GetFeature"},
		"TYPENAME":     []string{s.typeName()},
		"SRSNAME":      []string{srsName},
		"OUTPUTFORMAT": []string{outputFormat},
		"startIndex":   []string{strconv.Itoa(startIndex)},
		"count":        []string{strconv.Itoa(count)},
	}
}

// Page retrieves count features starting at startIndex.
func (s *FeatureService) Page(ctx context.Context, startIndex, count int) (*geojson.FeatureCollection, error) {
	req, err := s.client.NewRequest("GET", Path+"?"+s.Query(startIndex, count).Encode(), nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	fc := new(geojson.FeatureCollection)
	if err := s.client.Client.Do(req, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

// manifest describes the chunk files in DataDir. Cached chunks are only valid
// for a run that pages the same layer with the same count.
type manifest struct {
	TypeName string `json:"type_name"`
	Count    int    `json:"count"`
}

func (s *FeatureService) currentManifest() manifest {
	return manifest{TypeName: s.typeName(), Count: s.count()}
}

func (s *FeatureService) manifestMatches() bool {
	data, err := os.ReadFile(filepath.Join(s.dataDir(), ManifestName))
	if err != nil {
		return false
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	return m == s.currentManifest()
}

func (s *FeatureService) writeManifest() error {
	data, err := json.Marshal(s.currentManifest())
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dataDir(), ManifestName), data, 0644)
}

// removeChunks deletes every chunk file in DataDir with an index of at least
// from.
func (s *FeatureService) removeChunks(from int) error {
	paths, err := geo.ChunkFiles(s.dataDir())
	if err != nil {
		return err
	}
	for _, path := range paths {
		i, ok := geo.ChunkIndex(filepath.Base(path))
		if !ok || i < from {
			continue
		}
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *FeatureService) loadChunkFromDisk(index int) (*geojson.FeatureCollection, error) {
	if s.CacheTTL == 0 {
		return nil, errors.New("cache set to zero")
	}
	path := filepath.Join(s.dataDir(), geo.ChunkName(index))
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if time.Since(fi.ModTime()) > s.CacheTTL {
		return nil, errors.New("local data too old")
	}
	fc, err := geo.ReadChunk(path)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, errors.New("cached chunk is empty")
	}
	return fc, nil
}

// Chunk is a single page of results.
type Chunk struct {
	Index      int
	Collection *geojson.FeatureCollection
	// Cached is true if the chunk was read from DataDir.
	Cached bool
}

// Fetch requests pages one at a time, page i starting at feature i*Count,
// and calls fn with each one. It stops at the first page that has no
// features; fn is not called for that page. An error from fn stops the loop
// and is returned.
//
// Cached chunks are used only if the manifest in DataDir matches the current
// TypeName and Count.
func (s *FeatureService) Fetch(ctx context.Context, fn func(*Chunk) error) error {
	count := s.count()
	useCache := s.CacheTTL > 0 && s.manifestMatches()
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := &Chunk{Index: index}
		if useCache {
			if fc, err := s.loadChunkFromDisk(index); err == nil {
				chunk.Collection = fc
				chunk.Cached = true
			}
		}
		if chunk.Collection == nil {
			fc, err := s.Page(ctx, index*count, count)
			if err != nil {
				return &ChunkError{Index: index, Err: err}
			}
			chunk.Collection = fc
		}
		if len(chunk.Collection.Features) == 0 {
			return nil
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}

// WriteChunks fetches every page and writes each non-empty one to
// DataDir/chunk-<index>.json. Chunks loaded from the cache are not rewritten.
// fn, if not nil, is called after each chunk is handled. WriteChunks returns
// the number of chunks.
//
// If the chunk files in DataDir were paged differently they are removed
// before fetching. After a successful run, chunk files past the last page are
// removed too, so DataDir holds exactly the chunks of this run.
func (s *FeatureService) WriteChunks(ctx context.Context, fn func(*Chunk)) (int, error) {
	dir := s.dataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	if !s.manifestMatches() {
		if err := s.removeChunks(0); err != nil {
			return 0, err
		}
		if err := s.writeManifest(); err != nil {
			return 0, err
		}
	}
	n := 0
	err := s.Fetch(ctx, func(c *Chunk) error {
		if !c.Cached {
			data, err := json.Marshal(c.Collection)
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(dir, geo.ChunkName(c.Index)), data, 0644); err != nil {
				return err
			}
		}
		n++
		if fn != nil {
			fn(c)
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, s.removeChunks(n)
}

// ChunkError reports the page that failed to load.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return "fetching chunk " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
