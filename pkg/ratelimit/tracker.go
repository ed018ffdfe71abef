package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cascade_quota_remaining",
		Help: "Requests remaining in the current provider quota window",
	})

	quotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cascade_quota_blocks_total",
		Help: "Total number of backend requests held back by an exhausted provider quota",
	})

	quotaThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cascade_quota_throttles_total",
		Help: "Total number of backend requests delayed by a low provider quota",
	})
)

// Config holds the tracker configuration.
type Config struct {
	// Key is the Redis key holding the shared state (default: cascade:quota)
	Key string

	// RemainingHeader carries the requests left (default: X-RateLimit-Remaining)
	RemainingHeader string

	// ResetHeader carries the time until reset, in seconds or as a Go
	// duration such as "6m0s" (default: X-RateLimit-Reset)
	ResetHeader string

	// Thresholds for throttling and blocking
	Thresholds Thresholds

	// ThrottleDelay is the pause applied in the warning band (default: 1s)
	ThrottleDelay time.Duration
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		Key:             "cascade:quota",
		RemainingHeader: "X-RateLimit-Remaining",
		ResetHeader:     "X-RateLimit-Reset",
		Thresholds:      DefaultThresholds(),
		ThrottleDelay:   time.Second,
	}
}

// Tracker reads quota headers from backend responses and gates requests.
type Tracker struct {
	redis  redis.UniversalClient
	cfg    Config
	logger zerolog.Logger
}

// NewTracker creates a quota tracker. Zero config fields take their defaults.
func NewTracker(redisClient redis.UniversalClient, cfg Config, logger zerolog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.Key == "" {
		cfg.Key = def.Key
	}
	if cfg.RemainingHeader == "" {
		cfg.RemainingHeader = def.RemainingHeader
	}
	if cfg.ResetHeader == "" {
		cfg.ResetHeader = def.ResetHeader
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.ThrottleDelay <= 0 {
		cfg.ThrottleDelay = def.ThrottleDelay
	}

	return &Tracker{
		redis:  redisClient,
		cfg:    cfg,
		logger: logger,
	}
}

// GetState retrieves the shared quota state.
// Returns nil if no response has reported a quota or the window has reset.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	data, err := t.redis.Get(ctx, t.cfg.Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quota state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse quota state: %w", err)
	}
	return &state, nil
}

// UpdateFromHeaders parses the quota headers of a response and stores the
// state until the window resets. Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(t.cfg.RemainingHeader)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.cfg.RemainingHeader, err)
	}

	resetStr := headers.Get(t.cfg.ResetHeader)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", t.cfg.ResetHeader)
	}

	reset, err := parseReset(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.cfg.ResetHeader, err)
	}

	now := time.Now()
	state := State{
		Remaining:  remain,
		ResetAt:    now.Add(reset),
		LastUpdate: now,
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}

	// the state is meaningless once the window resets
	expiry := reset
	if expiry < time.Second {
		expiry = time.Second
	}
	if err := t.redis.Set(ctx, t.cfg.Key, data, expiry).Err(); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	quotaRemaining.Set(float64(remain))

	switch {
	case state.NeedsBlock(t.cfg.Thresholds):
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Provider quota CRITICAL - requests will be held back")
	case state.NeedsThrottling(t.cfg.Thresholds):
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Provider quota low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Provider quota updated")
	}

	return nil
}

// Allow reports whether a request may be sent now. In the warning band it
// first pauses for the throttle delay, returning ctx's error if ctx ends
// during the pause.
func (t *Tracker) Allow(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, err
	}
	if state == nil {
		return true, nil
	}

	if state.NeedsBlock(t.cfg.Thresholds) {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Provider quota exhausted - holding back request")
		quotaBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling(t.cfg.Thresholds) {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Dur("delay", t.cfg.ThrottleDelay).
			Msg("Provider quota low - throttling request")
		quotaThrottlesTotal.Inc()

		timer := time.NewTimer(t.cfg.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}

// parseReset accepts "30", "1.5" (seconds) or Go durations like "6m0s".
func parseReset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative reset %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative reset %q", s)
	}
	return d, nil
}
