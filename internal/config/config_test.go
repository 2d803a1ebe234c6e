package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/pipeline"
)

// isolate points every XDG directory at a temp dir and clears SITEPLAN_*
// variables so tests never see the developer's settings.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{
		EnvStrategy, EnvCacheEnabled, EnvCacheDir, EnvCacheTTL, EnvRedisURL,
		EnvMongoURI, EnvMongoDatabase, EnvServerAddr, EnvWorkers,
	} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultStrategy, cfg.Strategy)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(dir, "cache", AppName), cfg.Cache.Dir)
	assert.Equal(t, pipeline.DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, filepath.Join(dir, "config", AppName, "runs"), cfg.Store.Dir)
	assert.Equal(t, DefaultDatabase, cfg.Store.Database)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Zero(t, cfg.Batch.Workers)
}

func TestLoadTOML(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "siteplan.toml"), `
strategy = "greedy"

[cache]
enabled = false
redis_url = "redis://localhost:6379/0"
ttl = "2h"

[store]
mongo_uri = "mongodb://localhost:27017"
database = "plans"

[server]
addr = "127.0.0.1:9090"

[batch]
workers = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "greedy", cfg.Strategy)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.MongoURI)
	assert.Equal(t, "plans", cfg.Store.Database)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "siteplan.yaml"), `
strategy: backtrack
cache:
  dir: /tmp/siteplan-cache
  ttl: 90m
batch:
  workers: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "backtrack", cfg.Strategy)
	assert.Equal(t, "/tmp/siteplan-cache", cfg.Cache.Dir)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.True(t, cfg.Cache.Enabled, "unset keys keep their defaults")
}

func TestLoadDefaultPathFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", AppName, "config.toml"), "strategy = \"greedy\"\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "greedy", cfg.Strategy)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "siteplan.toml"), "strategy = \"greedy\"\n[batch]\nworkers = 4\n")
	t.Setenv(EnvStrategy, "backtrack")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvCacheEnabled, "false")
	t.Setenv(EnvCacheTTL, "1h")
	t.Setenv(EnvServerAddr, "localhost:7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "backtrack", cfg.Strategy)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "localhost:7000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		env  map[string]string
		code errors.Code
	}{
		{
			name: "missing explicit file",
			file: "absent.toml",
			code: errors.ErrCodeFileNotFound,
		},
		{
			name: "unknown extension",
			file: "siteplan.ini",
			body: "strategy=greedy\n",
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "bad toml",
			file: "siteplan.toml",
			body: "strategy = \n",
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "unknown strategy",
			file: "siteplan.toml",
			body: "strategy = \"annealing\"\n",
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "too many workers",
			file: "siteplan.yaml",
			body: "batch:\n  workers: 1000\n",
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "bad env duration",
			file: "siteplan.toml",
			body: "",
			env:  map[string]string{EnvCacheTTL: "soon"},
			code: errors.ErrCodeInvalidConfig,
		},
		{
			name: "bad env bool",
			file: "siteplan.toml",
			body: "",
			env:  map[string]string{EnvCacheEnabled: "maybe"},
			code: errors.ErrCodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, tt.file)
			if tt.body != "" || tt.name != "missing explicit file" {
				writeFile(t, path, tt.body)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, ".env"), "SITEPLAN_WORKERS=3\nSITEPLAN_SERVER_ADDR=:9999\n")
	t.Setenv(EnvServerAddr, ":7777")
	// isolate set it empty; godotenv only fills absent variables.
	require.NoError(t, os.Unsetenv(EnvWorkers))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "3", os.Getenv(EnvWorkers))
	assert.Equal(t, ":7777", os.Getenv(EnvServerAddr), "existing variables win")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestPipelineOptions(t *testing.T) {
	cfg := Default()
	cfg.Strategy = "greedy"
	cfg.Batch.Workers = 6
	cfg.Cache.TTL = time.Hour

	opts := cfg.PipelineOptions()
	assert.Equal(t, "greedy", opts.Strategy)
	assert.Equal(t, 6, opts.Workers)
	assert.Equal(t, time.Hour, opts.CacheTTL)
	require.NoError(t, opts.ValidateAndSetDefaults())
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", AppName), dir)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", AppName, "config.toml"), path)

	cache, err := CacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache", AppName), cache)

	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	cache, err = CacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/custom-cache", AppName), cache)
}
