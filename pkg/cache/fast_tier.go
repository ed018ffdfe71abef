package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// FastTier is a bounded, in-process LRU store (L1).
// All operations take a single mutex and never perform I/O.
type FastTier struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[CacheKey]*list.Element
	order    *list.List // front = most recently used
}

type fastTierItem struct {
	key   CacheKey
	entry *CacheEntry
}

// FastTierOption configures a FastTier.
type FastTierOption func(*FastTier)

// WithExpiry makes GetAndPromote and Peek treat entries older than ttl
// (measured from Metadata.CreatedAt) as absent. Zero disables expiry.
func WithExpiry(ttl time.Duration) FastTierOption {
	return func(f *FastTier) {
		f.ttl = ttl
	}
}

// NewFastTier creates an LRU fast tier holding at most capacity entries.
func NewFastTier(capacity int, opts ...FastTierOption) (*FastTier, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	f := &FastTier{
		capacity: capacity,
		items:    make(map[CacheKey]*list.Element, capacity),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Peek returns the entry without changing recency order.
func (f *FastTier) Peek(key CacheKey) (*CacheEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	elem, ok := f.items[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*fastTierItem)
	if item.entry.IsExpired(f.ttl) {
		return nil, false
	}
	return item.entry, true
}

// GetAndPromote returns the entry and marks it most recently used.
// Expired entries are dropped on access.
func (f *FastTier) GetAndPromote(key CacheKey) (*CacheEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	elem, ok := f.items[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*fastTierItem)
	if item.entry.IsExpired(f.ttl) {
		f.removeElement(elem)
		fastTierExpirations.Inc()
		return nil, false
	}

	f.order.MoveToFront(elem)
	return item.entry, true
}

// Put inserts or overwrites an entry, evicting the least recently used
// entry when the tier is full.
func (f *FastTier) Put(key CacheKey, entry *CacheEntry) {
	if entry == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if elem, ok := f.items[key]; ok {
		elem.Value.(*fastTierItem).entry = entry
		f.order.MoveToFront(elem)
		return
	}

	if f.order.Len() >= f.capacity {
		if oldest := f.order.Back(); oldest != nil {
			f.removeElement(oldest)
			fastTierEvictions.Inc()
		}
	}

	f.items[key] = f.order.PushFront(&fastTierItem{key: key, entry: entry})
	fastTierEntries.Inc()
}

// Clear removes all entries.
func (f *FastTier) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	fastTierEntries.Sub(float64(f.order.Len()))
	f.items = make(map[CacheKey]*list.Element, f.capacity)
	f.order.Init()
}

// Len returns the number of stored entries.
func (f *FastTier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order.Len()
}

// Capacity returns the maximum number of entries.
func (f *FastTier) Capacity() int {
	return f.capacity
}

// removeElement must be called with mu held.
func (f *FastTier) removeElement(elem *list.Element) {
	item := f.order.Remove(elem).(*fastTierItem)
	delete(f.items, item.key)
	fastTierEntries.Dec()
}
