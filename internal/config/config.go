// Package config loads siteplan settings.
//
// Settings are layered, later sources winning:
//
//  1. Built-in defaults
//  2. A TOML or YAML file, chosen by extension
//  3. SITEPLAN_* environment variables, optionally seeded from a .env file
//
// The merged result is validated before it is returned.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/siteplan/pkg/errors"
	"github.com/matzehuels/siteplan/pkg/pipeline"
)

// AppName names the application directories.
const AppName = "siteplan"

// Environment variables read by Load.
const (
	EnvStrategy      = "SITEPLAN_STRATEGY"
	EnvCacheEnabled  = "SITEPLAN_CACHE_ENABLED"
	EnvCacheDir      = "SITEPLAN_CACHE_DIR"
	EnvCacheTTL      = "SITEPLAN_CACHE_TTL"
	EnvRedisURL      = "SITEPLAN_REDIS_URL"
	EnvMongoURI      = "SITEPLAN_MONGO_URI"
	EnvMongoDatabase = "SITEPLAN_MONGO_DATABASE"
	EnvServerAddr    = "SITEPLAN_SERVER_ADDR"
	EnvWorkers       = "SITEPLAN_WORKERS"
)

// DefaultServerAddr is the listen address of "siteplan serve".
const DefaultServerAddr = ":8080"

// DefaultDatabase is the Mongo database holding run history.
const DefaultDatabase = "siteplan"

// Config holds every setting of the CLI and server.
type Config struct {
	Strategy string       `toml:"strategy" yaml:"strategy" validate:"omitempty,oneof=backtrack greedy"`
	Cache    CacheConfig  `toml:"cache" yaml:"cache"`
	Store    StoreConfig  `toml:"store" yaml:"store"`
	Server   ServerConfig `toml:"server" yaml:"server"`
	Batch    BatchConfig  `toml:"batch" yaml:"batch"`
}

// CacheConfig selects the solve cache. A RedisURL wins over Dir.
type CacheConfig struct {
	Enabled  bool          `toml:"enabled" yaml:"enabled"`
	Dir      string        `toml:"dir" yaml:"dir"`
	RedisURL string        `toml:"redis_url" yaml:"redis_url" validate:"omitempty,url"`
	TTL      time.Duration `toml:"ttl" yaml:"ttl" validate:"gte=0"`
}

// StoreConfig selects where run records go. Without a MongoURI runs are
// written as JSON files under Dir.
type StoreConfig struct {
	Dir      string `toml:"dir" yaml:"dir"`
	MongoURI string `toml:"mongo_uri" yaml:"mongo_uri" validate:"omitempty,url"`
	Database string `toml:"database" yaml:"database" validate:"required_with=MongoURI"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" validate:"required,hostname_port"`
}

// BatchConfig bounds parallel solving.
type BatchConfig struct {
	Workers int `toml:"workers" yaml:"workers" validate:"gte=0,lte=256"`
}

// Default returns the built-in settings.
func Default() *Config {
	cacheDir, _ := CacheDir()
	runsDir := ""
	if dir, err := Dir(); err == nil {
		runsDir = filepath.Join(dir, "runs")
	}
	return &Config{
		Strategy: pipeline.DefaultStrategy,
		Cache: CacheConfig{
			Enabled: true,
			Dir:     cacheDir,
			TTL:     pipeline.DefaultCacheTTL,
		},
		Store: StoreConfig{
			Dir:      runsDir,
			Database: DefaultDatabase,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path means DefaultPath, which may be absent; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		err := cfg.loadFile(path)
		switch {
		case err == nil:
		case os.IsNotExist(err) && !explicit:
		case os.IsNotExist(err):
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file not found: %s", path)
		default:
			return nil, err
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	return errors.ValidateStruct(errors.ErrCodeInvalidConfig, c)
}

// PipelineOptions returns the solve options these settings imply.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Strategy: c.Strategy,
		Workers:  c.Batch.Workers,
		CacheTTL: c.Cache.TTL,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	return nil
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Strategy, EnvStrategy)
	setString(&c.Cache.Dir, EnvCacheDir)
	setString(&c.Cache.RedisURL, EnvRedisURL)
	setString(&c.Store.MongoURI, EnvMongoURI)
	setString(&c.Store.Database, EnvMongoDatabase)
	setString(&c.Server.Addr, EnvServerAddr)

	if v, ok := lookup(EnvCacheEnabled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvCacheEnabled, v, err)
		}
		c.Cache.Enabled = b
	}
	if v, ok := lookup(EnvCacheTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError(EnvCacheTTL, v, err)
		}
		c.Cache.TTL = d
	}
	if v, ok := lookup(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(EnvWorkers, v, err)
		}
		c.Batch.Workers = n
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envError(key, value string, err error) error {
	return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s=%q", key, value)
}

// =============================================================================
// Paths
// =============================================================================

// Dir returns the configuration directory ($XDG_CONFIG_HOME/siteplan or
// ~/.config/siteplan).
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// DefaultPath returns the config file read when --config is not given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the cache directory ($XDG_CACHE_HOME/siteplan or
// ~/.cache/siteplan).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", AppName), nil
}
