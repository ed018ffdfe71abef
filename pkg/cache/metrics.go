package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fastTierEntries tracks entries held by all fast tiers in the process
	fastTierEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_fast_tier_entries",
			Help: "Current number of entries in the in-process fast tier",
		},
	)

	// fastTierEvictions tracks capacity-driven evictions
	fastTierEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_fast_tier_evictions_total",
			Help: "Total number of fast tier entries evicted by capacity",
		},
	)

	// fastTierExpirations tracks entries dropped because they outlived the shared tier TTL
	fastTierExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_fast_tier_expirations_total",
			Help: "Total number of fast tier entries dropped on access after expiry",
		},
	)

	// SharedTierErrors tracks shared tier operation errors
	SharedTierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_shared_tier_errors_total",
			Help: "Total number of shared tier operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "encode", "decode"
	)

	// SharedTierBytesRead tracks payload bytes read from the shared tier
	SharedTierBytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_shared_tier_read_bytes_total",
			Help: "Total bytes of entries read from the shared tier",
		},
	)

	// SharedTierBytesWritten tracks payload bytes written to the shared tier
	SharedTierBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_shared_tier_written_bytes_total",
			Help: "Total bytes of entries written to the shared tier",
		},
	)
)
