package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/goliatone/go-twig/pkg/loader"
)

var (
	// ErrCacheNotAbsolute is returned for relative cache directories.
	ErrCacheNotAbsolute = errors.New("engine: cache directory is not an absolute path")
	// ErrCacheDisabled is returned when an operation needs a cache but none
	// is configured.
	ErrCacheDisabled = errors.New("engine: cache is disabled")
)

// DiskCache stores template source snapshots below a directory, keyed by
// the hash of the template name.
type DiskCache struct {
	dir string
}

type snapshot struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Code     string `json:"code"`
}

// NewDiskCache returns a cache rooted at dir, which must be absolute.
// The directory is created on first write.
func NewDiskCache(dir string) (*DiskCache, error) {
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("%w: %q", ErrCacheNotAbsolute, dir)
	}
	return &DiskCache{dir: filepath.Clean(dir)}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) path(name string) string {
	sum := sha256.Sum256([]byte(name))
	key := hex.EncodeToString(sum[:])
	return filepath.Join(c.dir, key[:2], key+".json")
}

// Load returns the snapshot for name. ok is false when none exists.
func (c *DiskCache) Load(name string) (src loader.Source, ok bool, err error) {
	data, err := os.ReadFile(c.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return loader.Source{}, false, nil
	}
	if err != nil {
		return loader.Source{}, false, fmt.Errorf("engine: read cache entry %q: %w", name, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return loader.Source{}, false, fmt.Errorf("engine: decode cache entry %q: %w", name, err)
	}
	src = loader.Source{Name: snap.Name, Path: snap.Path, Code: snap.Code}
	if snap.Name != name || snap.Checksum != src.Checksum() {
		return loader.Source{}, false, nil
	}
	return src, true, nil
}

// Store writes a snapshot of src, skipping the write when the stored
// checksum already matches.
func (c *DiskCache) Store(src loader.Source) error {
	checksum := src.Checksum()
	if current, ok, err := c.Load(src.Name); err == nil && ok && current.Checksum() == checksum && current.Path == src.Path {
		return nil
	}

	data, err := json.Marshal(snapshot{Name: src.Name, Path: src.Path, Checksum: checksum, Code: src.Code})
	if err != nil {
		return fmt.Errorf("engine: encode cache entry %q: %w", src.Name, err)
	}

	target := c.path(src.Name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("engine: create cache directory: %w", err)
	}
	if err := atomic.WriteFile(target, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("engine: write cache entry %q: %w", src.Name, err)
	}
	return nil
}

// Clear removes every entry below the cache root. The root itself is
// kept. Clearing a missing root is an error.
func (c *DiskCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("engine: clear cache %s: %w", c.dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("engine: clear cache %s: %w", c.dir, err)
		}
	}
	return nil
}
