// Package config loads tmdb-finder settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey   = "TMDB_API_KEY"
	EnvBaseURL  = "TMDB_BASE_URL"
	EnvLanguage = "TMDB_LANGUAGE"
	EnvTimeout  = "TMDB_TIMEOUT"
	EnvStorage  = "TMDB_FINDER_STORAGE"
	EnvDataDir  = "TMDB_FINDER_DATA_DIR"
	EnvLogLevel = "TMDB_FINDER_LOG_LEVEL"
)

// Config holds all tmdb-finder settings.
type Config struct {
	TMDB    TMDBConfig    `yaml:"tmdb"`
	Storage StorageConfig `yaml:"storage"`
	Browse  BrowseConfig  `yaml:"browse"`
	Logging LoggingConfig `yaml:"logging"`
}

type TMDBConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	ImageBaseURL string `yaml:"image_base_url"`
	Language     string `yaml:"language"`
	// Timeout bounds one HTTP round trip; RequestTimeout bounds a whole
	// load including retries.
	Timeout           string  `yaml:"timeout"`
	RequestTimeout    string  `yaml:"request_timeout"`
	MaxAttempts       int     `yaml:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // file, sqlite
	Dir      string `yaml:"dir"`
	CacheDir string `yaml:"cache_dir"`
}

type BrowseConfig struct {
	GridPageSize   int    `yaml:"grid_page_size"`
	TablePageSize  int    `yaml:"table_page_size"`
	SearchDebounce string `yaml:"search_debounce"`
	DefaultView    string `yaml:"default_view"` // grid, table
	SectionLimit   int    `yaml:"section_limit"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
			Language:          "en-US",
			Timeout:           "12s",
			RequestTimeout:    "20s",
			MaxAttempts:       3,
			RequestsPerSecond: 20,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Browse: BrowseConfig{
			GridPageSize:   20,
			TablePageSize:  5,
			SearchDebounce: "400ms",
			DefaultView:    "grid",
			SectionLimit:   10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// DefaultPath is config.yaml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tmdb-finder-cli", "config.yaml"), nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		c.TMDB.APIKey = key
	}
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		c.TMDB.BaseURL = baseURL
	}
	if language := os.Getenv(EnvLanguage); language != "" {
		c.TMDB.Language = language
	}
	if timeout := os.Getenv(EnvTimeout); timeout != "" {
		c.TMDB.Timeout = timeout
	}
	if backend := os.Getenv(EnvStorage); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.Storage.Dir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be file or sqlite, got %q", c.Storage.Backend)
	}
	switch c.Browse.DefaultView {
	case "grid", "table":
	default:
		return fmt.Errorf("browse.default_view must be grid or table, got %q", c.Browse.DefaultView)
	}
	for name, value := range map[string]string{
		"tmdb.timeout":           c.TMDB.Timeout,
		"tmdb.request_timeout":   c.TMDB.RequestTimeout,
		"browse.search_debounce": c.Browse.SearchDebounce,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Browse.TablePageSize < 1 || c.Browse.TablePageSize > 20 {
		return fmt.Errorf("browse.table_page_size must be between 1 and 20, got %d", c.Browse.TablePageSize)
	}
	if c.Browse.GridPageSize < 1 || c.Browse.GridPageSize > 20 {
		return fmt.Errorf("browse.grid_page_size must be between 1 and 20, got %d", c.Browse.GridPageSize)
	}
	return nil
}

// HTTPTimeout is tmdb.timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	d, _ := parseDuration(c.TMDB.Timeout)
	return d
}

// LoadTimeout is tmdb.request_timeout as a duration.
func (c *Config) LoadTimeout() time.Duration {
	d, _ := parseDuration(c.TMDB.RequestTimeout)
	return d
}

// SearchDebounce is browse.search_debounce as a duration.
func (c *Config) SearchDebounce() time.Duration {
	d, _ := parseDuration(c.Browse.SearchDebounce)
	return d
}

// parseDuration accepts Go duration strings and bare numbers of seconds.
func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if seconds, err := cast.ToFloat64E(value); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := cast.ToDurationE(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return d, nil
}
