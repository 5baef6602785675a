package cache

import (
	"os"
	"path/filepath"
)

// FileCache stores raw lookup responses on disk, keyed by a fingerprint
// hash. Fingerprint lookups are deterministic for a given file, so cached
// responses never go stale in a way that matters here.
type FileCache struct {
	Dir string
}

func (f *FileCache) Get(key string) ([]byte, error) {
	// We use the key as the filename
	path := filepath.Join(f.Dir, key+".json")
	return os.ReadFile(path)
}

func (f *FileCache) Put(key string, data []byte) error {
	// Ensure the directory exists
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(f.Dir, key+".json")
	return os.WriteFile(path, data, 0644)
}

func (f *FileCache) Exists(key string) bool {
	_, err := os.Stat(filepath.Join(f.Dir, key+".json"))
	return err == nil
}
