package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// CacheLevel identifies the tier that served an entry.
type CacheLevel string

const (
	// LevelNone marks a fresh computation from the backend.
	LevelNone CacheLevel = ""

	// LevelFastTier marks a hit in the in-process LRU.
	LevelFastTier CacheLevel = "fast_tier"

	// LevelSharedTier marks a hit in the shared Redis tier.
	LevelSharedTier CacheLevel = "shared_tier"
)

// String returns a printable level name.
func (l CacheLevel) String() string {
	if l == LevelNone {
		return "none"
	}
	return string(l)
}

// EntryMetadata describes where an entry came from.
type EntryMetadata struct {
	// Cached is true when the entry was served from a cache tier.
	Cached bool `json:"cached"`

	// Level is the tier that served the entry (LevelNone for fresh computations).
	Level CacheLevel `json:"level,omitempty"`

	// CreatedAt is when the backend produced the value.
	CreatedAt time.Time `json:"created_at"`

	// BackendTag identifies the backend that produced the value.
	BackendTag string `json:"backend_tag"`
}

// CacheEntry is a cached result of the expensive computation.
// Entries are immutable once stored; tiers hand out copies via WithLevel.
type CacheEntry struct {
	// Value is the backend output
	Value []byte `json:"value"`

	// Metadata describes the origin of the value
	Metadata EntryMetadata `json:"metadata"`
}

// NewEntry creates a fresh, uncached entry for a backend result.
func NewEntry(value []byte, backendTag string) *CacheEntry {
	return &CacheEntry{
		Value: value,
		Metadata: EntryMetadata{
			Cached:     false,
			Level:      LevelNone,
			CreatedAt:  time.Now(),
			BackendTag: backendTag,
		},
	}
}

// WithLevel returns a copy of the entry marked as served from the given tier.
// The value slice is shared; callers must not modify it.
func (e *CacheEntry) WithLevel(level CacheLevel) *CacheEntry {
	cp := *e
	cp.Metadata.Level = level
	cp.Metadata.Cached = level != LevelNone
	return &cp
}

// ExpiresAt returns when the entry outlives the given TTL.
// Returns the zero time if ttl is not positive.
func (e *CacheEntry) ExpiresAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return e.Metadata.CreatedAt.Add(ttl)
}

// IsExpired returns true if the entry is older than ttl.
// A non-positive ttl never expires.
func (e *CacheEntry) IsExpired(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return time.Now().After(e.ExpiresAt(ttl))
}

// storedEntry is the shared-tier wire form. Level and Cached are not persisted;
// they describe a lookup, not the value.
type storedEntry struct {
	Value      []byte    `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	BackendTag string    `json:"backend_tag"`
}

// Encode serializes an entry for the shared tier.
func Encode(entry *CacheEntry) ([]byte, error) {
	if entry == nil {
		return nil, fmt.Errorf("cache entry cannot be nil")
	}
	data, err := json.Marshal(storedEntry{
		Value:      entry.Value,
		CreatedAt:  entry.Metadata.CreatedAt,
		BackendTag: entry.Metadata.BackendTag,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// Decode reconstructs an entry read from the shared tier.
// The returned entry has LevelNone; the caller assigns the serving level.
func Decode(data []byte) (*CacheEntry, error) {
	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if stored.Value == nil {
		return nil, fmt.Errorf("%w: missing value", ErrInvalidEntry)
	}
	return &CacheEntry{
		Value: stored.Value,
		Metadata: EntryMetadata{
			CreatedAt:  stored.CreatedAt,
			BackendTag: stored.BackendTag,
		},
	}, nil
}
