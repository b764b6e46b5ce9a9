// Package cache persists extraction results between runs so unchanged files
// are neither re-parsed nor re-hashed. An entry is reused only while the
// file's size and modification time match what was recorded.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/adrg/xdg"

	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/tags"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("cache")

// DefaultDir returns $XDG_CACHE_HOME/crate/tracks.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "crate", "tracks")
}

// Cache buffers new entries in memory and writes them on Flush.
type Cache struct {
	store *Store
	dir   string

	mu      sync.Mutex
	pending map[string]*Entry

	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens the cache in dir, creating it if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	store, err := OpenStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	return &Cache{store: store, dir: dir, pending: make(map[string]*Entry)}, nil
}

// Dir returns the directory backing the cache.
func (c *Cache) Dir() string { return c.dir }

// Close flushes pending entries and closes the store.
func (c *Cache) Close() error {
	flushErr := c.Flush()
	if err := c.store.Close(); err != nil {
		return err
	}
	return flushErr
}

// Lookup returns the cached entry for path when it is still valid for the
// given size and modification time.
func (c *Cache) Lookup(path string, info os.FileInfo) (*Entry, bool) {
	entry, err := c.store.Get(path)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("cache entry unreadable", "path", path, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if !entry.Matches(info.Size(), info.ModTime()) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry, true
}

// Record queues an entry for the record; it is written on Flush.
func (c *Cache) Record(t types.TrackFile) {
	c.mu.Lock()
	c.pending[t.Path] = NewEntry(t)
	c.mu.Unlock()
}

// Flush writes queued entries to the store.
func (c *Cache) Flush() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*Entry)
	c.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := c.store.PutBatch(pending); err != nil {
		return fmt.Errorf("writing cache entries: %w", err)
	}
	logger.Debug("cache flushed", "entries", len(pending))
	return nil
}

// Forget drops the entries for paths, e.g. after they were deleted or moved.
func (c *Cache) Forget(paths ...string) error {
	c.mu.Lock()
	for _, p := range paths {
		delete(c.pending, p)
	}
	c.mu.Unlock()
	return c.store.Delete(paths...)
}

// Prune removes entries whose files no longer exist and returns how many
// were removed.
func (c *Cache) Prune() (int, error) {
	var gone []string
	err := c.store.Paths(func(path string) error {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			gone = append(gone, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(gone) == 0 {
		return 0, nil
	}
	if err := c.store.Delete(gone...); err != nil {
		return 0, err
	}
	return len(gone), nil
}

// Clear removes every entry below dir, or everything when dir is empty.
func (c *Cache) Clear(dir string) error {
	c.mu.Lock()
	c.pending = make(map[string]*Entry)
	c.mu.Unlock()

	if dir == "" {
		return c.store.DeletePrefix([]byte(keyPrefix))
	}
	return c.store.DeletePrefix(MakeDirPrefix(dir))
}

// Stats describes the cache contents and this session's hit rate.
type Stats struct {
	Entries  int
	DiskSize int64
	Hits     int64
	Misses   int64
}

// Stats counts entries and reports on-disk size.
func (c *Cache) Stats() (Stats, error) {
	st := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	err := c.store.Paths(func(string) error {
		st.Entries++
		return nil
	})
	lsm, vlog := c.store.Size()
	st.DiskSize = lsm + vlog
	return st, err
}

// Extractor serves records from the cache and delegates misses to Next.
type Extractor struct {
	Cache *Cache
	Next  tags.Extractor
}

// Extract implements tags.Extractor. A cached entry without a hash is not
// used when a hash is requested.
func (x Extractor) Extract(path string, origin types.Origin, withHash bool) (types.TrackFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.TrackFile{}, err
	}

	if entry, ok := x.Cache.Lookup(path, info); ok && (!withHash || entry.Hash != "") {
		return entry.Track(path, origin, withHash), nil
	}

	rec, err := x.Next.Extract(path, origin, withHash)
	if err != nil {
		return rec, err
	}
	x.Cache.Record(rec)
	return rec, nil
}
