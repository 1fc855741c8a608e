// Package config loads relgraph configuration: compiled defaults, then a
// TOML file, then RELGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds relgraph configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	View   ViewConfig   `toml:"view"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	EventCacheSize  int      `toml:"event_cache_size"`
	EventCacheTTL   Duration `toml:"event_cache_ttl"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	DisableLive     bool     `toml:"disable_live"`
}

// StoreConfig selects where relationship data comes from.
type StoreConfig struct {
	Driver string `toml:"driver"` // "memory" or "postgres"
	DSN    string `toml:"dsn"`
	Seed   string `toml:"seed"`   // JSON seed loaded into the memory store
	Import string `toml:"import"` // CSV report appended to the memory store after the seed
}

// ViewConfig sizes the graph drawing.
type ViewConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Duration is a time.Duration written as a string such as "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			EventCacheSize:  1024,
			EventCacheTTL:   Duration{5 * time.Minute},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Store: StoreConfig{Driver: DriverMemory},
		View:  ViewConfig{Width: 960, Height: 600},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the config file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"RELGRAPH_ADDR":      &c.Server.Addr,
		"RELGRAPH_STORE":     &c.Store.Driver,
		"RELGRAPH_DSN":       &c.Store.DSN,
		"RELGRAPH_SEED":      &c.Store.Seed,
		"RELGRAPH_IMPORT":    &c.Store.Import,
		"RELGRAPH_LOG_LEVEL": &c.Log.Level,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup("RELGRAPH_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
	if v, ok := lookup("RELGRAPH_LOG_DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RELGRAPH_LOG_DEVELOPMENT: %w", err)
		}
		c.Log.Development = b
	}
	return nil
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Server.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("server.addr is empty: %w", ErrInvalid))
	}
	if c.Server.EventCacheSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("server.event_cache_size must be positive: %w", ErrInvalid))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("store.dsn is required for postgres: %w", ErrInvalid))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("store.driver %q is unknown: %w", c.Store.Driver, ErrInvalid))
	}
	if c.View.Width <= 0 || c.View.Height <= 0 {
		result = multierror.Append(result, fmt.Errorf("view size must be positive: %w", ErrInvalid))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", ErrInvalid))
	}
	return result.ErrorOrNil()
}

// NewLogger builds the logger described by c.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
