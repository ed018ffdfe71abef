package cascade

import (
	"fmt"
	"strings"
)

// DetailedStatsReport formats the current statistics with tier settings
// and the backend cost avoided at costPerCall per computation.
func (s *Service) DetailedStatsReport(costPerCall float64) string {
	snap := s.stats.Snapshot()
	breakdown := snap.LevelBreakdown()

	ttl := "none"
	if s.shared.TTL() > 0 {
		ttl = s.shared.TTL().String()
	}

	var b strings.Builder
	b.WriteString("Cache Cascade Statistics\n")
	b.WriteString("========================\n")
	fmt.Fprintf(&b, "Namespace:          %s\n", s.namespace)
	fmt.Fprintf(&b, "Fast tier:          %d/%d entries\n", s.fast.Len(), s.fast.Capacity())
	fmt.Fprintf(&b, "Shared tier TTL:    %s\n", ttl)
	fmt.Fprintf(&b, "Backend:            %s\n", s.backendTag)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total requests:     %d\n", snap.TotalRequests)
	fmt.Fprintf(&b, "Fast tier hits:     %d (%.1f%%)\n", snap.FastTierHits, breakdown.FastTierPct)
	fmt.Fprintf(&b, "Shared tier hits:   %d (%.1f%%)\n", snap.SharedTierHits, breakdown.SharedTierPct)
	fmt.Fprintf(&b, "Misses:             %d (%.1f%%)\n", snap.Misses, breakdown.MissPct)
	fmt.Fprintf(&b, "Hit rate:           %.1f%%\n", snap.HitRate()*100)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Cost per call:      $%.4f\n", costPerCall)
	fmt.Fprintf(&b, "Estimated savings:  $%.2f\n", snap.CostSavings(costPerCall))

	return b.String()
}
