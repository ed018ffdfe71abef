// Package stats accumulates cascade request outcomes and derives hit rate,
// per-level breakdown and cost savings.
package stats

import (
	"sync/atomic"
)

// Tracker holds the cascade counters. All methods are safe for concurrent
// use and lock-free. Counters only ever grow.
type Tracker struct {
	totalRequests  atomic.Uint64
	fastTierHits   atomic.Uint64
	sharedTierHits atomic.Uint64
	misses         atomic.Uint64
}

// NewTracker creates a tracker with all counters at zero.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordRequest counts an incoming request. It must be called before the
// request's outcome is recorded.
func (t *Tracker) RecordRequest() {
	t.totalRequests.Add(1)
}

// RecordFastTierHit counts a request served from the fast tier.
func (t *Tracker) RecordFastTierHit() {
	t.fastTierHits.Add(1)
}

// RecordSharedTierHit counts a request served from the shared tier.
func (t *Tracker) RecordSharedTierHit() {
	t.sharedTierHits.Add(1)
}

// RecordMiss counts a request that reached the backend, successful or not.
func (t *Tracker) RecordMiss() {
	t.misses.Add(1)
}

// Snapshot returns a point-in-time copy of the counters.
//
// Outcome counters are loaded before the request counter. Since every outcome
// is recorded after its request, the snapshot never reports more outcomes
// than requests, even mid-burst.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		FastTierHits:   t.fastTierHits.Load(),
		SharedTierHits: t.sharedTierHits.Load(),
		Misses:         t.misses.Load(),
	}
	s.TotalRequests = t.totalRequests.Load()
	return s
}
