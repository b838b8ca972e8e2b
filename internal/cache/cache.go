// Package cache implements the disk-backed artifact cache shared across build
// invocations. The layout mirrors a Maven repository, so a cache directory can
// itself be served as one:
//
//	<root>/<registryHash>/<group/path>/<artifact>/<version>/<canonicalFileName>
//
// Each source registry gets its own hash-keyed subtree, isolating registries
// that publish artifacts under the same coordinates.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvnoci/mvnoci/internal/artifacts"
	"github.com/mvnoci/mvnoci/internal/coords"
	"github.com/mvnoci/mvnoci/pkg/logger"
)

// registryHashLen truncates the registry digest; 12 hex characters keep the
// directory names short while making collisions between configured registries
// implausible.
const registryHashLen = 12

// Cache is the persistent cache for one source registry. Safe for concurrent
// use within a process and across processes: readers share, writers are
// exclusive, and writes are atomic so a reader never observes a partial file.
type Cache struct {
	root  string
	locks *pathLocks
}

// New creates (or reopens) the cache for registryURL under cacheRoot.
func New(cacheRoot, registryURL string) (*Cache, error) {
	if cacheRoot == "" {
		return nil, fmt.Errorf("cache root must not be empty")
	}
	if registryURL == "" {
		return nil, fmt.Errorf("registry URL must not be empty")
	}

	root := filepath.Join(cacheRoot, registryHash(registryURL))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{root: root, locks: newPathLocks(root)}, nil
}

// Root returns the registry-specific cache directory.
func (c *Cache) Root() string {
	return c.root
}

// Has reports whether the coordinate's file is cached.
func (c *Cache) Has(coord *coords.Coordinate) bool {
	target := c.filePath(coord)
	unlock := c.locks.read(target)
	defer unlock()

	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

// Get returns the cached bytes for the coordinate, or ok=false when absent.
func (c *Cache) Get(coord *coords.Coordinate) ([]byte, bool) {
	target := c.filePath(coord)
	unlock := c.locks.read(target)
	defer unlock()

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores bytes for the coordinate under its canonical file name.
func (c *Cache) Put(coord *coords.Coordinate, data []byte) error {
	return c.writeFile(c.filePath(coord), data)
}

// PutBundle copies every file from sourceDir (the result of a registry pull)
// into the cache, renaming each to its Maven-conventional name so the cache
// always holds canonically named files regardless of how the registry stored
// them.
func (c *Cache) PutBundle(coord *coords.Coordinate, sourceDir string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to read bundle directory: %w", err)
	}

	dir := c.versionDir(coord)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(sourceDir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read bundle file %s: %w", e.Name(), err)
		}
		canonical := artifacts.CanonicalName(e.Name(), coord)
		if err := c.writeFile(filepath.Join(dir, canonical), data); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every cached file for this registry.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return os.MkdirAll(c.root, 0o755)
}

func (c *Cache) versionDir(coord *coords.Coordinate) string {
	groupPath := filepath.Join(strings.Split(coord.Group, ".")...)
	return filepath.Join(c.root, groupPath, coord.Artifact, coord.Version)
}

func (c *Cache) filePath(coord *coords.Coordinate) string {
	return filepath.Join(c.versionDir(coord), coord.CanonicalFileName())
}

// writeFile writes atomically: the bytes land in a sibling temp file that is
// renamed over the target, so concurrent readers see either the old content or
// the new, never a partial write.
func (c *Cache) writeFile(target string, data []byte) error {
	unlock := c.locks.write(target)
	defer unlock()

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mvnoci-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		removeTemp(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		removeTemp(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		removeTemp(tmpName)
		return fmt.Errorf("failed to set cache file mode: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		removeTemp(tmpName)
		return fmt.Errorf("failed to finalize cache file: %w", err)
	}
	return nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil {
		logger.Warnf("failed to remove temp cache file %s: %v", path, err)
	}
}

func registryHash(registryURL string) string {
	sum := sha256.Sum256([]byte(registryURL))
	return hex.EncodeToString(sum[:])[:registryHashLen]
}
