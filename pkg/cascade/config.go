package cascade

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/cache-cascade/pkg/backend"
	"github.com/Sternrassler/cache-cascade/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// Config holds the cascade configuration.
type Config struct {
	// SharedTierEndpoint is the Redis URL (redis://host:port/db) or a bare
	// host:port. Ignored when Store is set.
	SharedTierEndpoint string

	// Store overrides the shared tier store. The service does not close it.
	Store cache.SharedStore

	// FastTierCapacity is the maximum number of L1 entries (REQUIRED, > 0)
	FastTierCapacity int

	// SharedTierTTL is the L2 entry expiry (0 = no expiry)
	SharedTierTTL time.Duration

	// Namespace prefixes every key (default: cache.DefaultNamespace)
	Namespace string

	// Backend is the origin computation (REQUIRED)
	Backend backend.Backend

	// BackendTag overrides the tag stored in entry metadata.
	// Defaults to the backend's Name() if it has one, otherwise "default".
	BackendTag string

	// BackendTimeout bounds each backend call in addition to the caller's
	// context (0 = caller's context only)
	BackendTimeout time.Duration

	// CoalesceMisses shares one backend call between concurrent misses on
	// the same key.
	CoalesceMisses bool

	// StrictSharedTier fails Predict with ErrSharedTier on L2 read errors
	// instead of falling through to the backend.
	StrictSharedTier bool

	// FastTierExpiry drops L1 entries older than SharedTierTTL on read.
	FastTierExpiry bool
}

// DefaultConfig returns the default configuration for the given backend.
func DefaultConfig(b backend.Backend) Config {
	return Config{
		SharedTierEndpoint: "redis://localhost:6379/0",
		FastTierCapacity:   1000,
		SharedTierTTL:      time.Hour,
		Namespace:          cache.DefaultNamespace,
		Backend:            b,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FastTierCapacity <= 0 {
		return fmt.Errorf("%w: fast tier capacity must be > 0 (got %d)", ErrConfiguration, c.FastTierCapacity)
	}
	if c.SharedTierTTL < 0 {
		return fmt.Errorf("%w: shared tier ttl must be >= 0 (got %v)", ErrConfiguration, c.SharedTierTTL)
	}
	if c.BackendTimeout < 0 {
		return fmt.Errorf("%w: backend timeout must be >= 0 (got %v)", ErrConfiguration, c.BackendTimeout)
	}
	if c.Backend == nil {
		return fmt.Errorf("%w: backend is required", ErrConfiguration)
	}
	if c.Store == nil && c.SharedTierEndpoint == "" {
		return fmt.Errorf("%w: shared tier endpoint or store is required", ErrConfiguration)
	}
	return nil
}

// redisOptions turns the endpoint into client options.
func redisOptions(endpoint string) (*redis.Options, error) {
	if !strings.Contains(endpoint, "://") {
		return &redis.Options{Addr: endpoint}, nil
	}
	opts, err := redis.ParseURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse shared tier endpoint: %w", ErrConfiguration, err)
	}
	return opts, nil
}
