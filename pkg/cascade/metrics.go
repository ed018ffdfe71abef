package cascade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cascade lookups.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_requests_total",
		Help: "Total predict requests by namespace",
	}, []string{"namespace"})

	hitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_hits_total",
		Help: "Cache hits by namespace and tier",
	}, []string{"namespace", "level"})

	missesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_misses_total",
		Help: "Requests that fell through to the backend",
	}, []string{"namespace"})

	backendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_backend_errors_total",
		Help: "Failed backend computations by reason (error, timeout, cancelled)",
	}, []string{"namespace", "reason"})

	backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cascade_backend_duration_seconds",
		Help:    "Backend computation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"namespace"})
)
