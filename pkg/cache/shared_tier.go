package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SharedTier is the shared, TTL-bounded tier (L2). It owns entry
// serialization; the underlying store only sees bytes.
type SharedTier struct {
	store SharedStore
	ttl   time.Duration
}

// NewSharedTier wraps a store with the entry codec and the configured TTL.
func NewSharedTier(store SharedStore, ttl time.Duration) *SharedTier {
	if store == nil {
		panic("shared store cannot be nil")
	}
	return &SharedTier{
		store: store,
		ttl:   ttl,
	}
}

// Get retrieves and decodes an entry.
// Returns ErrCacheMiss if absent, ErrInvalidEntry if the stored bytes are corrupt.
func (t *SharedTier) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := t.store.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		SharedTierErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	entry, err := Decode(data)
	if err != nil {
		SharedTierErrors.WithLabelValues("decode").Inc()
		return nil, err
	}

	SharedTierBytesRead.Add(float64(len(data)))
	return entry, nil
}

// Set encodes and stores an entry with the tier TTL.
func (t *SharedTier) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	data, err := Encode(entry)
	if err != nil {
		SharedTierErrors.WithLabelValues("encode").Inc()
		return err
	}

	if err := t.store.Set(ctx, key.String(), data, t.ttl); err != nil {
		SharedTierErrors.WithLabelValues("set").Inc()
		return err
	}

	SharedTierBytesWritten.Add(float64(len(data)))
	return nil
}

// Clear removes every entry matching pattern.
func (t *SharedTier) Clear(ctx context.Context, pattern string) error {
	if err := t.store.DeleteMatching(ctx, pattern); err != nil {
		SharedTierErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("clear shared tier: %w", err)
	}
	return nil
}

// TTL returns the configured entry expiry.
func (t *SharedTier) TTL() time.Duration {
	return t.ttl
}
