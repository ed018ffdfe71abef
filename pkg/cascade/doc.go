// Package cascade serves expensive computations through a three-level
// cache: an in-process LRU (L1), a shared Redis tier (L2) and the backend
// itself (L3).
//
// # Lookup
//
// Predict hashes the input into a namespaced key and probes the tiers in
// order. An L2 hit is promoted into L1. A full miss calls the backend and
// stores the result into L2, then L1. Backend failures and timeouts are
// returned to the caller and nothing is cached.
//
// Shared tier failures are logged and treated as misses, so an unavailable
// Redis slows the service down but does not break it. Set
// Config.StrictSharedTier to fail instead.
//
// # Usage
//
//	svc, err := cascade.New(cascade.Config{
//		SharedTierEndpoint: "redis://localhost:6379/0",
//		FastTierCapacity:   100,
//		SharedTierTTL:      time.Hour,
//		Backend:            myBackend,
//	})
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	entry, err := svc.Predict(ctx, []byte("capital of France?"))
//	if err != nil {
//		return err
//	}
//	fmt.Println(string(entry.Value), entry.Metadata.Cached, entry.Metadata.Level)
//
// # Metrics
//
//   - cascade_requests_total{namespace}
//   - cascade_hits_total{namespace, level}
//   - cascade_misses_total{namespace}
//   - cascade_backend_errors_total{namespace, reason}
//   - cascade_backend_duration_seconds{namespace}
package cascade
