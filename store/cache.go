package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const SectionsCacheTTL = 30 * time.Minute

// SectionsCacheName is the cache entry holding the home sections fetched in
// language.
func SectionsCacheName(language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "default"
	}
	return "sections_" + language
}

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

// Cache stores response snapshots as JSON files with a write timestamp.
type Cache struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir, now: time.Now}
}

// OpenCache roots a Cache at the user cache directory.
func OpenCache() (*Cache, error) {
	dir, err := CacheDir()
	if err != nil {
		return nil, err
	}
	return NewCache(afero.NewOsFs(), dir), nil
}

// LoadCache returns the cached value for name and whether it is younger than
// ttl. A missing entry yields the zero value, false and no error.
func LoadCache[T any](c *Cache, name string, ttl time.Duration) (T, bool, error) {
	cache, _, err := readCache[T](c, name)
	if err != nil {
		return cache.Data, false, err
	}
	return cache.Data, !cache.UpdatedAt.IsZero() && c.now().Sub(cache.UpdatedAt) <= ttl, nil
}

// LoadOrFetch serves name from the cache while it is younger than ttl and
// calls fetch otherwise, or always when force is set. A successful fetch is
// cached. When fetch fails and an older entry exists, that entry is returned
// with stale set and the fetch error; otherwise the fetch result is returned
// as is.
func LoadOrFetch[T any](c *Cache, name string, ttl time.Duration, force bool, fetch func() (T, error)) (value T, stale bool, err error) {
	if c == nil {
		value, err = fetch()
		return value, false, err
	}

	cache, found, readErr := readCache[T](c, name)
	if readErr != nil {
		found = false
	}
	if found && !force && c.now().Sub(cache.UpdatedAt) <= ttl {
		return cache.Data, false, nil
	}

	value, err = fetch()
	if err != nil {
		if found {
			return cache.Data, true, err
		}
		return value, false, err
	}
	// Best effort: the next call refetches.
	_ = SaveCache(c, name, value)
	return value, false, nil
}

func readCache[T any](c *Cache, name string) (cacheEnvelope[T], bool, error) {
	var cache cacheEnvelope[T]
	data, err := afero.ReadFile(c.fs, c.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cache, false, nil
		}
		return cache, false, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, false, fmt.Errorf("decode cache %s: %w", name, err)
	}
	return cache, true, nil
}

func SaveCache[T any](c *Cache, name string, data T) error {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	cache := cacheEnvelope[T]{
		UpdatedAt: c.now(),
		Data:      data,
	}
	payload, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(c.fs, c.path(name), payload, 0o644)
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name+".json")
}
