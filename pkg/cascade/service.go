package cascade

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sternrassler/cache-cascade/pkg/backend"
	"github.com/Sternrassler/cache-cascade/pkg/cache"
	"github.com/Sternrassler/cache-cascade/pkg/logging"
	"github.com/Sternrassler/cache-cascade/pkg/stats"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// defaultBackendTag is stored when the backend does not name itself.
const defaultBackendTag = "default"

// Service is the cache cascade: L1 fast tier, L2 shared tier, L3 backend.
// It is safe for concurrent use. Independent services may share one process
// and one Redis as long as their namespaces differ.
type Service struct {
	cfg        Config
	namespace  string
	keys       cache.KeyGenerator
	fast       *cache.FastTier
	shared     *cache.SharedTier
	store      cache.SharedStore
	backend    backend.Backend
	backendTag string
	stats      *stats.Tracker
	flights    singleflight.Group
	owned      io.Closer
	logger     zerolog.Logger
}

// New creates a cascade service. When cfg.Store is nil the service dials
// cfg.SharedTierEndpoint and closes that client in Close.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	namespace := strings.Trim(cfg.Namespace, ":")
	if namespace == "" {
		namespace = cache.DefaultNamespace
	}

	var fastOpts []cache.FastTierOption
	if cfg.FastTierExpiry {
		fastOpts = append(fastOpts, cache.WithExpiry(cfg.SharedTierTTL))
	}
	fast, err := cache.NewFastTier(cfg.FastTierCapacity, fastOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	var owned io.Closer
	store := cfg.Store
	if store == nil {
		opts, err := redisOptions(cfg.SharedTierEndpoint)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		store = cache.NewRedisStore(client)
		owned = client
	}

	tag := cfg.BackendTag
	if tag == "" {
		if named, ok := cfg.Backend.(backend.Named); ok && named.Name() != "" {
			tag = named.Name()
		} else {
			tag = defaultBackendTag
		}
	}

	return &Service{
		cfg:        cfg,
		namespace:  namespace,
		keys:       cache.NewKeyGenerator(namespace),
		fast:       fast,
		shared:     cache.NewSharedTier(store, cfg.SharedTierTTL),
		store:      store,
		backend:    cfg.Backend,
		backendTag: tag,
		stats:      stats.NewTracker(),
		owned:      owned,
		logger:     logging.NewLogger("cascade").With().Str("namespace", namespace).Logger(),
	}, nil
}

// Predict returns the value for input from the fastest tier holding it,
// computing and caching it on a full miss.
//
// The returned entry is a copy; its metadata records the serving tier.
// Errors: ErrBackendFailed, ErrTimeout, and ErrSharedTier in strict mode.
func (s *Service) Predict(ctx context.Context, input []byte) (*cache.CacheEntry, error) {
	key := s.keys.Key(input)
	s.stats.RecordRequest()
	requestsTotal.WithLabelValues(s.namespace).Inc()

	// L1
	if entry, ok := s.fast.GetAndPromote(key); ok {
		s.stats.RecordFastTierHit()
		hitsTotal.WithLabelValues(s.namespace, string(cache.LevelFastTier)).Inc()
		s.logger.Debug().Str("key", key.String()).Str("level", cache.LevelFastTier.String()).Msg("Cache hit")
		return entry.WithLevel(cache.LevelFastTier), nil
	}

	// L2
	entry, err := s.shared.Get(ctx, key)
	switch {
	case err == nil:
		s.fast.Put(key, entry)
		s.stats.RecordSharedTierHit()
		hitsTotal.WithLabelValues(s.namespace, string(cache.LevelSharedTier)).Inc()
		s.logger.Debug().Str("key", key.String()).Str("level", cache.LevelSharedTier.String()).Msg("Cache hit")
		return entry.WithLevel(cache.LevelSharedTier), nil
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Shared tier read failed")
		if s.cfg.StrictSharedTier {
			s.stats.RecordMiss()
			missesTotal.WithLabelValues(s.namespace).Inc()
			return nil, fmt.Errorf("%w: %w", ErrSharedTier, err)
		}
	}

	// L3
	s.logger.Debug().Str("key", key.String()).Msg("Cache miss")
	entry, err = s.computeEntry(ctx, key, input)
	s.stats.RecordMiss()
	missesTotal.WithLabelValues(s.namespace).Inc()
	if err != nil {
		return nil, err
	}
	return entry.WithLevel(cache.LevelNone), nil
}

// computeEntry runs the miss path, shared between concurrent callers of
// the same key when coalescing is enabled.
func (s *Service) computeEntry(ctx context.Context, key cache.CacheKey, input []byte) (*cache.CacheEntry, error) {
	if !s.cfg.CoalesceMisses {
		return s.fill(ctx, key, input)
	}

	// The flight outlives any single caller: it keeps ctx values but not its
	// cancellation or deadline, and is bounded by BackendTimeout only. Every
	// caller stops waiting when its own context is done.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key.String(), func() (any, error) {
		return s.fill(flightCtx, key, input)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cache.CacheEntry), nil
	case <-ctx.Done():
		return nil, s.contextError(ctx.Err())
	}
}

// fill computes the value and stores it into L2, then L1.
func (s *Service) fill(ctx context.Context, key cache.CacheKey, input []byte) (*cache.CacheEntry, error) {
	value, err := s.compute(ctx, input)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}

	entry := cache.NewEntry(value, s.backendTag)
	if err := s.shared.Set(ctx, key, entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Shared tier write failed")
	}
	s.fast.Put(key, entry)

	return entry, nil
}

// compute calls the backend and abandons the call once ctx is done.
// A result arriving after that is dropped.
func (s *Service) compute(ctx context.Context, input []byte) ([]byte, error) {
	if s.cfg.BackendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.BackendTimeout)
		defer cancel()
	}

	type result struct {
		value []byte
		err   error
	}

	in := bytes.Clone(input)
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		value, err := s.backend.Compute(ctx, in)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		duration := time.Since(start)
		backendDuration.WithLabelValues(s.namespace).Observe(duration.Seconds())
		if res.err != nil {
			if ctx.Err() != nil {
				return nil, s.contextError(ctx.Err())
			}
			backendErrorsTotal.WithLabelValues(s.namespace, "error").Inc()
			s.logger.Error().Err(res.err).Dur("duration", duration).Msg("Backend computation failed")
			return nil, fmt.Errorf("%w: %w", ErrBackendFailed, res.err)
		}
		return res.value, nil
	case <-ctx.Done():
		return nil, s.contextError(ctx.Err())
	}
}

// contextError maps a done context to the cascade error taxonomy.
func (s *Service) contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		backendErrorsTotal.WithLabelValues(s.namespace, "timeout").Inc()
		s.logger.Error().Err(err).Msg("Backend computation timed out")
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	backendErrorsTotal.WithLabelValues(s.namespace, "cancelled").Inc()
	s.logger.Warn().Err(err).Msg("Backend computation cancelled")
	return fmt.Errorf("%w: %w", ErrBackendFailed, err)
}

// ClearCaches empties the fast tier and deletes the namespace from the
// shared tier. Statistics are kept.
func (s *Service) ClearCaches(ctx context.Context) error {
	s.fast.Clear()
	if err := s.shared.Clear(ctx, s.keys.Pattern()); err != nil {
		s.logger.Warn().Err(err).Msg("Shared tier clear failed")
		return fmt.Errorf("%w: %w", ErrSharedTier, err)
	}
	s.logger.Info().Msg("Caches cleared")
	return nil
}

// CacheStats returns a point-in-time snapshot of the counters.
func (s *Service) CacheStats() stats.Snapshot {
	return s.stats.Snapshot()
}

// FastTier exposes the L1 tier for inspection.
func (s *Service) FastTier() *cache.FastTier {
	return s.fast
}

// Keys returns the key generator of this service.
func (s *Service) Keys() cache.KeyGenerator {
	return s.keys
}

// Namespace returns the key namespace of this service.
func (s *Service) Namespace() string {
	return s.namespace
}

// Ping checks the shared tier connection, if the store supports it.
func (s *Service) Ping(ctx context.Context) error {
	pinger, ok := s.store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSharedTier, err)
	}
	return nil
}

// Close releases the Redis client created by New. A store passed in
// Config.Store is left open.
func (s *Service) Close() error {
	if s.owned == nil {
		return nil
	}
	return s.owned.Close()
}
