// Package cache provides the storage tiers of the cascade: key generation,
// the in-process LRU fast tier (L1) and the Redis-backed shared tier (L2).
//
// # Keys
//
// Keys are derived purely from the request payload with SHA-256 and carry a
// static namespace prefix, so several logical caches can share one Redis:
//
//	gen := cache.NewKeyGenerator("cascade:prediction")
//	key := gen.Key([]byte("capital of France?"))
//	// cascade:prediction:<64 hex chars>
//
// # Fast Tier
//
//	l1, err := cache.NewFastTier(1000)
//	if err != nil {
//		return err // ErrInvalidCapacity
//	}
//	l1.Put(key, entry)
//	entry, ok := l1.GetAndPromote(key)
//
// The fast tier has no expiry of its own unless WithExpiry is passed; eviction
// is capacity-driven.
//
// # Shared Tier
//
//	store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//	l2 := cache.NewSharedTier(store, time.Hour)
//
//	entry, err := l2.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fall through to the backend
//	}
//
// Entries are stored as JSON holding the value, creation time and backend tag.
// Any SharedStore implementation can replace Redis.
//
// # Metrics
//
//   - cascade_fast_tier_entries - Entries held in fast tiers
//   - cascade_fast_tier_evictions_total - Capacity evictions
//   - cascade_fast_tier_expirations_total - Entries dropped after expiry
//   - cascade_shared_tier_errors_total{operation} - Shared tier errors
//   - cascade_shared_tier_read_bytes_total - Bytes read from the shared tier
//   - cascade_shared_tier_written_bytes_total - Bytes written to the shared tier
package cache
