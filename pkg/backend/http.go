package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/cache-cascade/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for backend calls.
var (
	backendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_backend_requests_total",
		Help: "Total backend HTTP requests by status",
	}, []string{"status"})

	backendRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_backend_request_duration_seconds",
		Help:    "Backend HTTP request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	backendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_backend_http_errors_total",
		Help: "Total backend HTTP errors by class",
	}, []string{"class"})
)

// maxResponseBytes caps the size of a backend response body.
const maxResponseBytes = 16 << 20

// HTTPConfig holds the HTTP backend configuration.
type HTTPConfig struct {
	// URL of the inference endpoint (REQUIRED)
	URL string

	// Name identifies the backend in entry metadata (default: URL host)
	Name string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// RateLimit caps requests per second (0 = unlimited)
	RateLimit float64
	Burst     int

	// Retry overrides the per-class retry policy when set
	Retry *RetryConfig

	// Quota gates requests on the provider's reported quota (optional)
	Quota *ratelimit.Tracker
}

// DefaultHTTPConfig returns a safe default configuration.
func DefaultHTTPConfig(endpoint string) HTTPConfig {
	return HTTPConfig{
		URL:       endpoint,
		UserAgent: "cache-cascade/0.1.0",
		Timeout:   30 * time.Second,
		RateLimit: 0,
		Burst:     1,
	}
}

// HTTPBackend computes predictions by POSTing to a remote inference endpoint.
//
// Request body:  {"input": "<payload>"}
// Response body: returned verbatim as the prediction on 200.
type HTTPBackend struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	quota      *ratelimit.Tracker
	retrier    retrier
	config     HTTPConfig
	name       string
	logger     zerolog.Logger
}

type computeRequest struct {
	Input string `json:"input"`
}

// NewHTTP creates an HTTP backend.
func NewHTTP(cfg HTTPConfig) (*HTTPBackend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http(s) (got %q)", cfg.URL)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	name := cfg.Name
	if name == "" {
		name = u.Host
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := log.With().Str("component", "backend").Str("backend", name).Logger()

	r := retrier{logger: logger}
	if cfg.Retry != nil {
		override := *cfg.Retry
		r.configFor = func(ErrorClass) RetryConfig { return override }
	}

	return &HTTPBackend{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		quota:   cfg.Quota,
		retrier: r,
		config:  cfg,
		name:    name,
		logger:  logger,
	}, nil
}

// Name returns the backend identifier used as entry backend tag.
func (b *HTTPBackend) Name() string {
	return b.name
}

// Compute sends the input to the inference endpoint, retrying server,
// rate-limit and network failures with backoff.
func (b *HTTPBackend) Compute(ctx context.Context, input []byte) ([]byte, error) {
	body, err := json.Marshal(computeRequest{Input: string(input)})
	if err != nil {
		return nil, fmt.Errorf("marshal backend request: %w", err)
	}

	var output []byte
	err = b.retrier.do(ctx, func() error {
		out, attemptErr := b.attempt(ctx, body)
		if attemptErr != nil {
			return attemptErr
		}
		output = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// attempt performs a single HTTP round trip.
func (b *HTTPBackend) attempt(ctx context.Context, body []byte) ([]byte, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			// Wait fails early when the deadline cannot be met; never retry that
			return nil, fmt.Errorf("rate limiter wait: %w: %v", context.DeadlineExceeded, err)
		}
	}

	if b.quota != nil {
		allowed, err := b.quota.Allow(ctx)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case err != nil:
			// an unreadable quota state must not stop traffic
			b.logger.Warn().Err(err).Msg("Quota state unavailable")
		case !allowed:
			backendErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return nil, &Error{
				StatusCode: http.StatusTooManyRequests,
				ErrorClass: ErrorClassRateLimit,
				Message:    "provider quota exhausted",
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.config.UserAgent != "" {
		req.Header.Set("User-Agent", b.config.UserAgent)
	}

	start := time.Now()
	resp, err := b.httpClient.Do(req)
	backendRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		b.logger.Error().Err(err).Msg("Backend request failed")
		backendErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		backendRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	backendRequestsTotal.WithLabelValues(status).Inc()

	if b.quota != nil {
		if err := b.quota.UpdateFromHeaders(ctx, resp.Header); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to update quota state")
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		backendErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxResponseBytes {
		backendErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		b.logger.Error().
			Int("status", resp.StatusCode).
			Int("limit_bytes", maxResponseBytes).
			Msg("Backend response too large")
		return nil, &Error{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassClient,
			Message:    fmt.Sprintf("response exceeds %d bytes", maxResponseBytes),
			Err:        ErrResponseTooLarge,
		}
	}

	if errClass := classifyStatus(resp.StatusCode); errClass != "" {
		backendErrorsTotal.WithLabelValues(string(errClass)).Inc()
		b.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Backend request error")
		return nil, &Error{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassClient,
			Message:    "unexpected status " + resp.Status,
		}
	}

	return data, nil
}
