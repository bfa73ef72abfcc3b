// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Feed     FeedConfig     `yaml:"feed"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_seconds"`
}

// DatabaseConfig holds catalog storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FeedConfig holds provider feed settings.
type FeedConfig struct {
	URL           string  `yaml:"url"`
	TimeoutSec    int     `yaml:"timeout_seconds"`
	UserAgent     string  `yaml:"user_agent"`
	RatePerSecond float64 `yaml:"rate_per_second"` // client-side token bucket; 0 disables
	Burst         int     `yaml:"burst"`
}

// IngestConfig holds scheduler settings.
type IngestConfig struct {
	IntervalSec     int `yaml:"interval_seconds"`      // how often a cycle fires
	MisfireGraceSec int `yaml:"misfire_grace_seconds"` // how late a delayed firing may still run
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	TTLSec     int `yaml:"ttl_seconds"`
	MaxEntries int `yaml:"max_entries"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
			IdleTimeoutSec:  60,
		},
		Database: DatabaseConfig{
			Path: "/data/event-catalog.db",
		},
		Feed: FeedConfig{
			URL:           "https://provider.example.com/api/events",
			TimeoutSec:    30,
			UserAgent:     "event-catalog/1.0",
			RatePerSecond: 1.0,
			Burst:         2,
		},
		Ingest: IngestConfig{
			IntervalSec:     60,
			MisfireGraceSec: 30,
		},
		Cache: CacheConfig{
			TTLSec:     60,
			MaxEntries: 1024,
		},
	}
}

// Load reads configuration from the given YAML file over the defaults,
// then applies environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// applyEnv overrides selected settings from the environment.
func (c *Config) applyEnv() {
	c.Server.Addr = getenv("CATALOG_ADDR", c.Server.Addr)
	c.Database.Path = getenv("CATALOG_DB_PATH", c.Database.Path)
	c.Feed.URL = getenv("CATALOG_FEED_URL", c.Feed.URL)
	c.Ingest.IntervalSec = getenvInt("CATALOG_INGEST_INTERVAL_SECONDS", c.Ingest.IntervalSec)
	c.Ingest.MisfireGraceSec = getenvInt("CATALOG_MISFIRE_GRACE_SECONDS", c.Ingest.MisfireGraceSec)
	c.Cache.TTLSec = getenvInt("CATALOG_CACHE_TTL_SECONDS", c.Cache.TTLSec)
}

func (c *Config) validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Ingest.IntervalSec <= 0 {
		return fmt.Errorf("ingest.interval_seconds must be positive")
	}
	if c.Ingest.MisfireGraceSec < 0 {
		return fmt.Errorf("ingest.misfire_grace_seconds must not be negative")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
