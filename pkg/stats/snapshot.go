package stats

// Snapshot is a point-in-time view of the cascade counters.
type Snapshot struct {
	TotalRequests  uint64 `json:"total_requests"`
	FastTierHits   uint64 `json:"fast_tier_hits"`
	SharedTierHits uint64 `json:"shared_tier_hits"`
	Misses         uint64 `json:"misses"`
}

// Breakdown is the share of requests per outcome, in percent.
type Breakdown struct {
	FastTierPct   float64 `json:"fast_tier_pct"`
	SharedTierPct float64 `json:"shared_tier_pct"`
	MissPct       float64 `json:"miss_pct"`
}

// Hits returns the combined fast and shared tier hits.
func (s Snapshot) Hits() uint64 {
	return s.FastTierHits + s.SharedTierHits
}

// InFlight returns requests counted but not yet resolved to an outcome.
func (s Snapshot) InFlight() uint64 {
	done := s.Hits() + s.Misses
	if done >= s.TotalRequests {
		return 0
	}
	return s.TotalRequests - done
}

// HitRate returns hits / total requests, or 0 when no requests were seen.
func (s Snapshot) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(s.TotalRequests)
}

// LevelBreakdown returns the percentage of requests per outcome.
// All values are 0 when no requests were seen.
func (s Snapshot) LevelBreakdown() Breakdown {
	if s.TotalRequests == 0 {
		return Breakdown{}
	}
	total := float64(s.TotalRequests)
	return Breakdown{
		FastTierPct:   float64(s.FastTierHits) / total * 100,
		SharedTierPct: float64(s.SharedTierHits) / total * 100,
		MissPct:       float64(s.Misses) / total * 100,
	}
}

// CostSavings estimates the backend cost avoided by cache hits.
func (s Snapshot) CostSavings(costPerCall float64) float64 {
	return float64(s.Hits()) * costPerCall
}
