// Package config loads the cascade server configuration from a YAML file
// and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cache-cascade/pkg/backend"
	"github.com/Sternrassler/cache-cascade/pkg/cache"
	"github.com/Sternrassler/cache-cascade/pkg/cascade"
	"github.com/Sternrassler/cache-cascade/pkg/logging"
	"github.com/Sternrassler/cache-cascade/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Config holds all cascade server configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	Backend BackendConfig `yaml:"backend"`
	Log     LogConfig     `yaml:"log"`
	Report  ReportConfig  `yaml:"report"`
}

// RedisConfig locates the shared tier.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig controls both cache tiers.
type CacheConfig struct {
	Namespace        string        `yaml:"namespace"`
	FastTierCapacity int           `yaml:"fast_tier_capacity"`
	SharedTierTTL    time.Duration `yaml:"shared_tier_ttl"`
	FastTierExpiry   bool          `yaml:"fast_tier_expiry"`
	CoalesceMisses   bool          `yaml:"coalesce_misses"`
	StrictSharedTier bool          `yaml:"strict_shared_tier"`
}

// BackendConfig defines the remote inference endpoint.
type BackendConfig struct {
	URL       string        `yaml:"url"`
	Name      string        `yaml:"name"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
	Quota     QuotaConfig   `yaml:"quota"`
}

// QuotaConfig enables tracking of the provider's reported request quota.
type QuotaConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RemainingHeader string `yaml:"remaining_header"`
	ResetHeader     string `yaml:"reset_header"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ReportConfig parameterizes the statistics report.
type ReportConfig struct {
	CostPerCall float64 `yaml:"cost_per_call"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
		},
		Cache: CacheConfig{
			Namespace:        cache.DefaultNamespace,
			FastTierCapacity: 1000,
			SharedTierTTL:    time.Hour,
		},
		Backend: BackendConfig{
			UserAgent: "cache-cascade/0.1.0",
			Timeout:   30 * time.Second,
			Burst:     1,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Report: ReportConfig{
			CostPerCall: 0.01,
		},
	}
}

// Load reads a YAML config file, expands ${VAR} references and applies
// environment overrides. An empty path loads defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with well-known environment variables.
func (c *Config) applyEnv() error {
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Backend.URL = getEnv("BACKEND_URL", c.Backend.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Cache.Namespace = getEnv("CASCADE_NAMESPACE", c.Cache.Namespace)

	if port := os.Getenv("PORT"); port != "" {
		c.Listen = ":" + port
	}

	if v := os.Getenv("FAST_TIER_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FAST_TIER_CAPACITY: %w", err)
		}
		c.Cache.FastTierCapacity = n
	}

	if v := os.Getenv("SHARED_TIER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SHARED_TIER_TTL: %w", err)
		}
		c.Cache.SharedTierTTL = d
	}

	return nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url is required (set backend.url or BACKEND_URL)")
	}
	if c.Cache.FastTierCapacity <= 0 {
		return fmt.Errorf("cache.fast_tier_capacity must be > 0 (got %d)", c.Cache.FastTierCapacity)
	}
	if c.Cache.SharedTierTTL < 0 {
		return fmt.Errorf("cache.shared_tier_ttl must be >= 0 (got %v)", c.Cache.SharedTierTTL)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend.rate_limit must be >= 0 (got %v)", c.Backend.RateLimit)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error, disabled", c.Log.Level)
	}
	if c.Report.CostPerCall < 0 {
		return fmt.Errorf("report.cost_per_call must be >= 0 (got %v)", c.Report.CostPerCall)
	}
	return nil
}

// CascadeConfig builds the service configuration around b.
func (c *Config) CascadeConfig(b backend.Backend) cascade.Config {
	return cascade.Config{
		SharedTierEndpoint: c.Redis.URL,
		FastTierCapacity:   c.Cache.FastTierCapacity,
		SharedTierTTL:      c.Cache.SharedTierTTL,
		Namespace:          c.Cache.Namespace,
		Backend:            b,
		CoalesceMisses:     c.Cache.CoalesceMisses,
		StrictSharedTier:   c.Cache.StrictSharedTier,
		FastTierExpiry:     c.Cache.FastTierExpiry,
	}
}

// HTTPConfig builds the HTTP backend configuration.
func (c *Config) HTTPConfig() backend.HTTPConfig {
	cfg := backend.DefaultHTTPConfig(c.Backend.URL)
	cfg.Name = c.Backend.Name
	if c.Backend.UserAgent != "" {
		cfg.UserAgent = c.Backend.UserAgent
	}
	if c.Backend.Timeout > 0 {
		cfg.Timeout = c.Backend.Timeout
	}
	cfg.RateLimit = c.Backend.RateLimit
	if c.Backend.Burst > 0 {
		cfg.Burst = c.Backend.Burst
	}
	return cfg
}

// RedisOptions returns client options for the configured Redis URL.
// A bare host:port is accepted as well.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if !strings.Contains(c.Redis.URL, "://") {
		return &redis.Options{Addr: c.Redis.URL}, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// QuotaConfig builds the quota tracker configuration.
func (c *Config) QuotaConfig() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.Key = c.Cache.Namespace + ":quota"
	if c.Backend.Quota.RemainingHeader != "" {
		cfg.RemainingHeader = c.Backend.Quota.RemainingHeader
	}
	if c.Backend.Quota.ResetHeader != "" {
		cfg.ResetHeader = c.Backend.Quota.ResetHeader
	}
	return cfg
}

// LoggingConfig builds the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
