// Package config provides configuration loading for the pool engine server.
//
// Configuration comes from an optional YAML file named by the --config flag
// or the POOL_ENGINE_CONFIG environment variable. Values missing from the file
// keep their defaults. POOL_ENGINE_* variables override the file, and
// cmd/server applies command-line flags last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when no --config flag is given.
const EnvConfigPath = "POOL_ENGINE_CONFIG"

// Config is the server configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Booking  BookingConfig  `yaml:"booking"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	// Addr is the listen address.
	// Default: :8080
	Addr string `yaml:"addr"`

	// AllowedOrigins are the CORS origins of the admin frontend.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite file. ":memory:" keeps everything in memory.
	// Default: pools.db
	Path string `yaml:"path"`
}

// BookingConfig configures the booking service client.
type BookingConfig struct {
	// URL is the endpoint answering booking checks.
	URL string `yaml:"url"`

	// Timeout bounds one booking check.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig configures the organisation settings cache.
type CacheConfig struct {
	// Capacity is the number of subscribers kept.
	// Default: 128
	Capacity int `yaml:"capacity"`

	// TTL is how long one entry lives.
	// Default: 24h
	TTL time.Duration `yaml:"ttl"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Path: "pools.db"},
		Booking: BookingConfig{
			URL:     "http://localhost:9090/bookings/check",
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{Capacity: 128, TTL: 24 * time.Hour},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path, or the file named by POOL_ENGINE_CONFIG when path is
// empty. With neither set the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Environment overrides, applied by ApplyEnv.
const (
	EnvHTTPAddr       = "POOL_ENGINE_HTTP_ADDR"
	EnvDatabasePath   = "POOL_ENGINE_DATABASE_PATH"
	EnvBookingURL     = "POOL_ENGINE_BOOKING_URL"
	EnvBookingTimeout = "POOL_ENGINE_BOOKING_TIMEOUT"
	EnvLogLevel       = "POOL_ENGINE_LOG_LEVEL"
)

// ApplyEnv overrides values from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHTTPAddr); ok {
		c.HTTP.Addr = v
	}
	if v, ok := lookup(EnvDatabasePath); ok {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvBookingURL); ok {
		c.Booking.URL = v
	}
	if v, ok := lookup(EnvBookingTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBookingTimeout, err)
		}
		c.Booking.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Booking.URL == "" {
		errs = append(errs, errors.New("booking.url is required"))
	} else if u, err := url.Parse(c.Booking.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("booking.url %q is not an absolute URL", c.Booking.URL))
	}
	if c.Booking.Timeout <= 0 {
		errs = append(errs, errors.New("booking.timeout must be positive"))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, errors.New("cache.capacity must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel converts Level for log/slog.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: must be debug, info, warn or error", l.Level)
	}
	return level, nil
}
