// Package testutil provides testing utilities for the cache cascade.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"
)

// MockResponse defines the behavior of the mock inference server for one input.
type MockResponse struct {
	StatusCode int
	Body       string
	Header     http.Header
	Delay      time.Duration
}

// MockInference is a configurable mock inference server for testing.
// Inputs without a configured response are answered with "echo: <input>".
type MockInference struct {
	server *httptest.Server
	mu     sync.RWMutex
	// responses are consumed front to back; the last one repeats
	responses map[string][]MockResponse

	// Tracking
	RequestCount int
	LastInput    string
	LastHeader   http.Header
}

type inferenceRequest struct {
	Input string `json:"input"`
}

// NewMockInference creates a new mock inference server.
func NewMockInference() *MockInference {
	mock := &MockInference{
		responses: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req inferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error": "malformed request"}`, http.StatusBadRequest)
			return
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastInput = req.Input
		mock.LastHeader = r.Header.Clone()
		resp, ok := mock.next(req.Input)
		mock.mu.Unlock()

		if !ok {
			resp = NewAnswer("echo: " + req.Input)
		}

		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// next must be called with mu held.
func (m *MockInference) next(input string) (MockResponse, bool) {
	queue := m.responses[input]
	if len(queue) == 0 {
		return MockResponse{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		m.responses[input] = queue[1:]
	}
	return resp, true
}

// URL returns the mock server URL.
func (m *MockInference) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockInference) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockInference) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastInput = ""
	m.LastHeader = nil
}

// SetResponses configures the sequence of responses for an input.
// The last response repeats once the sequence is consumed.
func (m *MockInference) SetResponses(input string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = responses
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockInference) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockInference) GetLastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastHeader
}

// NewAnswer creates a 200 OK response with the given prediction.
func NewAnswer(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "quota exceeded"}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "malformed input"}`,
	}
}

// CountingBackend is an in-process backend returning fixed answers and
// counting calls. It satisfies backend.Backend.
type CountingBackend struct {
	mu      sync.Mutex
	answers map[string]string
	errs    map[string]error
	calls   atomic.Int64

	// Delay is applied to every call, honouring ctx.
	Delay time.Duration

	// IgnoreContext makes the backend sleep through cancellation.
	IgnoreContext bool
}

// NewCountingBackend creates a backend answering from the given map.
// Unknown inputs are answered with "echo: <input>".
func NewCountingBackend(answers map[string]string) *CountingBackend {
	if answers == nil {
		answers = make(map[string]string)
	}
	return &CountingBackend{
		answers: answers,
		errs:    make(map[string]error),
	}
}

// Fail makes every call for input return err. A nil err clears the failure.
func (b *CountingBackend) Fail(input string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.errs, input)
		return
	}
	b.errs[input] = err
}

// Compute implements backend.Backend.
func (b *CountingBackend) Compute(ctx context.Context, input []byte) ([]byte, error) {
	b.calls.Add(1)

	if b.Delay > 0 {
		if b.IgnoreContext {
			time.Sleep(b.Delay)
		} else {
			select {
			case <-time.After(b.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.errs[string(input)]; ok {
		return nil, err
	}
	if answer, ok := b.answers[string(input)]; ok {
		return []byte(answer), nil
	}
	return []byte("echo: " + string(input)), nil
}

// Calls returns the number of Compute invocations.
func (b *CountingBackend) Calls() int {
	return int(b.calls.Load())
}

// Name identifies the backend in entry metadata.
func (b *CountingBackend) Name() string {
	return "counting-backend"
}
