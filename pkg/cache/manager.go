package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrInvalidCapacity indicates a non-positive fast tier capacity
	ErrInvalidCapacity = errors.New("fast tier capacity must be > 0")
)

// scanBatchSize is the COUNT hint for SCAN during pattern deletes.
const scanBatchSize = 500

// SharedStore is the key-value contract of the shared tier (L2).
// Implementations must be safe for concurrent use.
type SharedStore interface {
	// Get returns the stored value or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value with the given expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeleteMatching removes every key matching a glob pattern.
	DeleteMatching(ctx context.Context, pattern string) error
}

// RedisStore implements SharedStore on top of Redis.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore creates a shared store with a Redis backend.
func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get retrieves a raw value by key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores a raw value. Redis removes it automatically after ttl.
// A non-positive ttl stores the value without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeleteMatching removes all keys matching pattern using SCAN, so large
// keyspaces are never blocked by a single KEYS call. On a cluster client
// every master is scanned, since SCAN only walks the node it is sent to.
func (s *RedisStore) DeleteMatching(ctx context.Context, pattern string) error {
	if cluster, ok := s.redis.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return deleteMatching(ctx, node, pattern, true)
		})
	}
	return deleteMatching(ctx, s.redis, pattern, false)
}

// deleteMatching scans one node and unlinks what it finds. Keys on a
// cluster node may span hash slots, so they are unlinked one per command
// in a pipeline instead of in a single multi-key UNLINK.
func deleteMatching(ctx context.Context, node redis.Cmdable, pattern string, perKey bool) error {
	var cursor uint64
	for {
		keys, next, err := node.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}

		if len(keys) > 0 {
			if err := unlink(ctx, node, keys, perKey); err != nil {
				return fmt.Errorf("redis unlink: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func unlink(ctx context.Context, node redis.Cmdable, keys []string, perKey bool) error {
	if !perKey {
		return node.Unlink(ctx, keys...).Err()
	}
	_, err := node.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Unlink(ctx, key)
		}
		return nil
	})
	return err
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
