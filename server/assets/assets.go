// Package assets holds the templates and static files served by the map
// server.
package assets

import (
	"crypto/sha256"
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Asset returns the contents of the named file, e.g. "static/app.js".
func Asset(name string) ([]byte, error) {
	return files.ReadFile(name)
}

// MustAssetString is like Asset but panics if the file does not exist.
func MustAssetString(name string) string {
	data, err := Asset(name)
	if err != nil {
		panic("assets: " + err.Error())
	}
	return string(data)
}

// Digests returns the SHA-256 digest of every file, keyed by name.
func Digests() (map[string][sha256.Size]byte, error) {
	digests := make(map[string][sha256.Size]byte)
	err := fs.WalkDir(files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := files.ReadFile(path)
		if err != nil {
			return err
		}
		digests[path] = sha256.Sum256(data)
		return nil
	})
	return digests, err
}
