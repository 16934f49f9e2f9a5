package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIKey, EnvBaseURL, EnvLanguage, EnvTimeout, EnvStorage, EnvDataDir, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "en-US", cfg.TMDB.Language)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Browse.TablePageSize)
	assert.Equal(t, 400*time.Millisecond, cfg.SearchDebounce())
	assert.Equal(t, 12*time.Second, cfg.HTTPTimeout())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tmdb:
  api_key: from-file
  language: pt-BR
  timeout: 5s
storage:
  backend: sqlite
browse:
  default_view: table
`), 0o600))

	t.Setenv(EnvAPIKey, "from-env")
	t.Setenv(EnvTimeout, "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TMDB.APIKey)
	assert.Equal(t, "pt-BR", cfg.TMDB.Language)
	assert.Equal(t, 2500*time.Millisecond, cfg.HTTPTimeout())
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "table", cfg.Browse.DefaultView)
	// Untouched sections keep their defaults.
	assert.Equal(t, 20, cfg.Browse.GridPageSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("storage backend is lowercased", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvStorage, "SQLite")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
	})

	t.Run("blank api key does not clear the file value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIKey, "   ")

		cfg := &Config{TMDB: TMDBConfig{APIKey: "kept"}}
		cfg.applyEnvOverrides()
		assert.Equal(t, "kept", cfg.TMDB.APIKey)
	})

	t.Run("data dir and log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvDataDir, "/tmp/tmdb")
		t.Setenv(EnvLogLevel, "DEBUG")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/tmp/tmdb", cfg.Storage.Dir)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":  func(c *Config) { c.Storage.Backend = "redis" },
		"view":     func(c *Config) { c.Browse.DefaultView = "carousel" },
		"debounce": func(c *Config) { c.Browse.SearchDebounce = "soon" },
		"table":    func(c *Config) { c.Browse.TablePageSize = 0 },
		"grid":     func(c *Config) { c.Browse.GridPageSize = 50 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.TMDB.APIKey = "abc"
	cfg.Browse.TablePageSize = 10
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
