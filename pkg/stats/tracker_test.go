package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTracker_Counters(t *testing.T) {
	tracker := NewTracker()

	for i := 0; i < 10; i++ {
		tracker.RecordRequest()
	}
	for i := 0; i < 5; i++ {
		tracker.RecordFastTierHit()
	}
	for i := 0; i < 3; i++ {
		tracker.RecordSharedTierHit()
	}
	tracker.RecordMiss()
	tracker.RecordMiss()

	snap := tracker.Snapshot()
	assert.Equal(t, uint64(10), snap.TotalRequests)
	assert.Equal(t, uint64(5), snap.FastTierHits)
	assert.Equal(t, uint64(3), snap.SharedTierHits)
	assert.Equal(t, uint64(2), snap.Misses)
	assert.Equal(t, uint64(8), snap.Hits())
	assert.Equal(t, uint64(0), snap.InFlight())
}

func TestSnapshot_HitRate(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{
			name: "no requests",
			snap: Snapshot{},
			want: 0,
		},
		{
			name: "all hits",
			snap: Snapshot{TotalRequests: 4, FastTierHits: 3, SharedTierHits: 1},
			want: 1,
		},
		{
			name: "mixed",
			snap: Snapshot{TotalRequests: 4, FastTierHits: 1, SharedTierHits: 1, Misses: 2},
			want: 0.5,
		},
		{
			name: "all misses",
			snap: Snapshot{TotalRequests: 7, Misses: 7},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.HitRate())
		})
	}
}

// TestSnapshot_HitRateExact checks hit_rate == h / n with exact float equality.
func TestSnapshot_HitRateExact(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.Uint64Range(1, 1_000_000).Draw(rt, "total")
		fast := rapid.Uint64Range(0, n).Draw(rt, "fast")
		shared := rapid.Uint64Range(0, n-fast).Draw(rt, "shared")

		snap := Snapshot{
			TotalRequests:  n,
			FastTierHits:   fast,
			SharedTierHits: shared,
			Misses:         n - fast - shared,
		}

		want := float64(fast+shared) / float64(n)
		if got := snap.HitRate(); got != want {
			rt.Fatalf("HitRate() = %v, want %v", got, want)
		}
	})
}

func TestSnapshot_LevelBreakdown(t *testing.T) {
	snap := Snapshot{TotalRequests: 8, FastTierHits: 4, SharedTierHits: 2, Misses: 2}
	got := snap.LevelBreakdown()

	assert.InDelta(t, 50.0, got.FastTierPct, 1e-9)
	assert.InDelta(t, 25.0, got.SharedTierPct, 1e-9)
	assert.InDelta(t, 25.0, got.MissPct, 1e-9)

	assert.Equal(t, Breakdown{}, Snapshot{}.LevelBreakdown())
}

func TestSnapshot_CostSavings(t *testing.T) {
	snap := Snapshot{TotalRequests: 10, FastTierHits: 6, SharedTierHits: 2, Misses: 2}
	assert.InDelta(t, 0.08, snap.CostSavings(0.01), 1e-12)
	assert.Equal(t, 0.0, Snapshot{}.CostSavings(0.01))
}

func TestSnapshot_InFlight(t *testing.T) {
	snap := Snapshot{TotalRequests: 10, FastTierHits: 3, Misses: 2}
	assert.Equal(t, uint64(5), snap.InFlight())
}

// TestTracker_SnapshotIsolation records request/outcome pairs concurrently
// and checks that no snapshot reports more outcomes than requests.
func TestTracker_SnapshotIsolation(t *testing.T) {
	tracker := NewTracker()

	const workers = 8
	const perWorker = 5000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				tracker.RecordRequest()
				switch (w + i) % 3 {
				case 0:
					tracker.RecordFastTierHit()
				case 1:
					tracker.RecordSharedTierHit()
				default:
					tracker.RecordMiss()
				}
			}
		}(w)
	}

	done := make(chan struct{})
	violations := 0
	go func() {
		defer close(done)
		for {
			snap := tracker.Snapshot()
			if snap.Hits()+snap.Misses > snap.TotalRequests {
				violations++
			}
			if snap.TotalRequests == workers*perWorker && snap.InFlight() == 0 {
				return
			}
		}
	}()

	wg.Wait()
	<-done

	require.Zero(t, violations, "snapshot reported more outcomes than requests")

	final := tracker.Snapshot()
	assert.Equal(t, uint64(workers*perWorker), final.TotalRequests)
	assert.Equal(t, final.TotalRequests, final.Hits()+final.Misses)
}
