package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/cache-cascade/pkg/cascade"
	"github.com/Sternrassler/cache-cascade/pkg/logging"
	"github.com/Sternrassler/cache-cascade/pkg/metrics"
	"github.com/Sternrassler/cache-cascade/pkg/stats"
	"github.com/rs/zerolog"
)

// maxRequestBytes caps the size of a predict request body.
const maxRequestBytes = 1 << 20

// server exposes a cascade service over HTTP.
type server struct {
	svc            *cascade.Service
	costPerCall    float64
	requestTimeout time.Duration
	logger         zerolog.Logger
}

func newServer(svc *cascade.Service, costPerCall float64, requestTimeout time.Duration) *server {
	return &server{
		svc:            svc,
		costPerCall:    costPerCall,
		requestTimeout: requestTimeout,
		logger:         logging.NewLogger("server"),
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.HandleFunc("POST /predict", s.predictHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("GET /stats/report", s.reportHandler)
	mux.HandleFunc("POST /clear", s.clearHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

type predictRequest struct {
	Input *string `json:"input"`
}

type predictResponse struct {
	Value      string    `json:"value"`
	Cached     bool      `json:"cached"`
	Level      string    `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
	BackendTag string    `json:"backend_tag"`
}

type statsResponse struct {
	stats.Snapshot
	HitRate   float64         `json:"hit_rate"`
	Breakdown stats.Breakdown `json:"breakdown"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		http.Error(w, "shared tier unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) predictHandler(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if req.Input == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "input is required"})
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	entry, err := s.svc.Predict(ctx, []byte(*req.Input))
	if err != nil {
		status := statusForError(err)
		s.logger.Warn().Err(err).Int("status", status).Msg("Predict failed")
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Value:      string(entry.Value),
		Cached:     entry.Metadata.Cached,
		Level:      entry.Metadata.Level.String(),
		CreatedAt:  entry.Metadata.CreatedAt,
		BackendTag: entry.Metadata.BackendTag,
	})
}

// statusForError maps cascade errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, cascade.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, cascade.ErrSharedTier):
		return http.StatusServiceUnavailable
	case errors.Is(err, cascade.ErrBackendFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) statsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.CacheStats()
	writeJSON(w, http.StatusOK, statsResponse{
		Snapshot:  snap,
		HitRate:   snap.HitRate(),
		Breakdown: snap.LevelBreakdown(),
	})
}

func (s *server) reportHandler(w http.ResponseWriter, r *http.Request) {
	cost := s.costPerCall
	if v := r.URL.Query().Get("cost_per_call"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "cost_per_call must be a non-negative number", http.StatusBadRequest)
			return
		}
		cost = parsed
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.svc.DetailedStatsReport(cost))
}

func (s *server) clearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCaches(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
