// Package config loads sentichart settings from a TOML or YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, SENTICHART_*
// environment variables, command-line flags (applied by the caller).
//
//	[backend]
//	base_url = "http://localhost:8000"
//	timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
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
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/chart"
	"github.com/matzehuels/sentichart/pkg/errors"
	"github.com/matzehuels/sentichart/pkg/source"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SENTICHART_"

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "sentichart.toml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level sentichart configuration.
type Config struct {
	Server  Server  `toml:"server" yaml:"server"`
	Backend Backend `toml:"backend" yaml:"backend"`
	Cache   Cache   `toml:"cache" yaml:"cache"`
	Store   Store   `toml:"store" yaml:"store"`
	Chart   Chart   `toml:"chart" yaml:"chart"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr         string   `toml:"addr" yaml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout" yaml:"write_timeout"`
}

// Backend locates the simulation service.
type Backend struct {
	BaseURL string   `toml:"base_url" yaml:"base_url"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
	Retries int      `toml:"retries" yaml:"retries"`
}

// Cache selects the pipeline cache.
type Cache struct {
	Backend       string `toml:"backend" yaml:"backend"` // file, redis or none
	Dir           string `toml:"dir" yaml:"dir"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
	Prefix        string `toml:"prefix" yaml:"prefix"`
}

// Store configures where fetched simulation responses are kept. A MongoURI
// takes precedence over Dir.
type Store struct {
	Dir        string `toml:"dir" yaml:"dir"`
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// Chart holds viewport and style defaults.
type Chart struct {
	Width   float64 `toml:"width" yaml:"width"`
	Height  float64 `toml:"height" yaml:"height"`
	Margins Margins `toml:"margins" yaml:"margins"`
	Style   string  `toml:"style" yaml:"style"`
}

// Margins mirrors chart.Margins with config tags.
type Margins struct {
	Top    float64 `toml:"top" yaml:"top"`
	Right  float64 `toml:"right" yaml:"right"`
	Bottom float64 `toml:"bottom" yaml:"bottom"`
	Left   float64 `toml:"left" yaml:"left"`
}

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler (used by toml).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration.
func Default() *Config {
	vp := chart.DefaultViewport()
	return &Config{
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
		},
		Backend: Backend{
			BaseURL: source.DefaultBaseURL,
			Timeout: Duration(source.DefaultTimeout),
			Retries: 3,
		},
		Cache: Cache{Backend: cache.BackendFile},
		Store: Store{
			Database:   source.DefaultMongoDatabase,
			Collection: source.DefaultMongoCollection,
		},
		Chart: Chart{
			Width:  vp.Width,
			Height: vp.Height,
			Margins: Margins{
				Top:    vp.Margins.Top,
				Right:  vp.Margins.Right,
				Bottom: vp.Margins.Bottom,
				Left:   vp.Margins.Left,
			},
			Style: "dark",
		},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path loads DefaultFile when it exists and otherwise
// starts from the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(cfg, path, data); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
	case os.IsNotExist(err):
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s not found", path)
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
		}
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return nil
}

// applyEnv overrides cfg from SENTICHART_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var firstErr error
	fail := func(name string, err error) {
		if firstErr == nil {
			firstErr = errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid %s%s", EnvPrefix, name)
		}
	}
	dur := func(name string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				fail(name, err)
			}
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = f
		}
	}

	str("ADDR", &cfg.Server.Addr)
	dur("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	str("BACKEND_URL", &cfg.Backend.BaseURL)
	dur("BACKEND_TIMEOUT", &cfg.Backend.Timeout)
	integer("BACKEND_RETRIES", &cfg.Backend.Retries)

	str("CACHE", &cfg.Cache.Backend)
	str("CACHE_DIR", &cfg.Cache.Dir)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	integer("REDIS_DB", &cfg.Cache.RedisDB)
	str("CACHE_PREFIX", &cfg.Cache.Prefix)

	str("STORE_DIR", &cfg.Store.Dir)
	str("MONGO_URI", &cfg.Store.MongoURI)
	str("MONGO_DATABASE", &cfg.Store.Database)
	str("MONGO_COLLECTION", &cfg.Store.Collection)

	float("WIDTH", &cfg.Chart.Width)
	float("HEIGHT", &cfg.Chart.Height)
	str("STYLE", &cfg.Chart.Style)

	return firstErr
}

// ---------------------------------------------------------------------------
// Validation and conversion
// ---------------------------------------------------------------------------

// Validate checks the values a typo would most likely break.
func (c *Config) Validate() error {
	if err := errors.ValidateURL(c.Backend.BaseURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "backend.base_url")
	}
	switch c.Cache.Backend {
	case "", cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Backend.Retries < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "backend.retries must be at least 1")
	}
	if err := c.Viewport().Validate(); err != nil {
		return errors.New(errors.ErrCodeInvalidViewport, "chart: %v", err)
	}
	return nil
}

// Viewport returns the configured chart viewport.
func (c *Config) Viewport() chart.Viewport {
	return chart.Viewport{
		Width:  c.Chart.Width,
		Height: c.Chart.Height,
		Margins: chart.Margins{
			Top:    c.Chart.Margins.Top,
			Right:  c.Chart.Margins.Right,
			Bottom: c.Chart.Margins.Bottom,
			Left:   c.Chart.Margins.Left,
		},
	}
}

// CacheOptions converts the cache section for cache.Open.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend: c.Cache.Backend,
		Dir:     c.Cache.Dir,
		Redis: cache.RedisOptions{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   c.Cache.Prefix,
		},
	}
}

// MongoOptions converts the store section for source.NewMongoStore.
func (c *Config) MongoOptions() source.MongoOptions {
	return source.MongoOptions{
		URI:        c.Store.MongoURI,
		Database:   c.Store.Database,
		Collection: c.Store.Collection,
	}
}

// ClientOptions converts the backend section for source.NewClient.
func (c *Config) ClientOptions() []source.ClientOption {
	return []source.ClientOption{
		source.WithTimeout(c.Backend.Timeout.Std()),
		source.WithRetry(c.Backend.Retries, time.Second),
	}
}
