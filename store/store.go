// Package store persists the wishlist, search preferences and response
// caches on the user's disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const appDir = "tmdb-finder-cli"

// Storage keys.
const (
	KeyWishlist           = "wishlist"
	KeySearchHistory      = "searchHistory"
	KeyRecentFilters      = "recentFilters"
	KeyLastSearchQuery    = "lastSearchQuery"
	KeyLastSelectedGenres = "lastSelectedGenres"
	KeyLastRatingRange    = "lastRatingRange"
	KeyLastYearRange      = "lastYearRange"
	KeyLastSortBy         = "lastSortBy"
)

// Storage is a durable key/value store. Values are JSON documents.
type Storage interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Open builds the configured backend rooted at dir. An empty dir resolves to
// the user config directory.
func Open(backend Backend, dir string, log *zap.Logger) (Storage, error) {
	if strings.TrimSpace(dir) == "" {
		resolved, err := DataDir()
		if err != nil {
			return nil, err
		}
		dir = resolved
	}
	switch backend {
	case BackendFile, "":
		return NewFileStorage(afero.NewOsFs(), dir, log)
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, "tmdb-finder.db"), log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// DataDir is where persistent user data lives.
func DataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

// CacheDir is where disposable response caches live.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

func loadJSON[T any](s Storage, key string) (T, bool, error) {
	var out T
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, true, nil
}

func saveJSON(s Storage, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, payload)
}
