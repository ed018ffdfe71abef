// Package ratelimit tracks the request quota an inference provider reports
// in its response headers and gates outgoing requests on it. The state is
// kept in Redis so every cascade instance sharing one provider account sees
// the same window.
package ratelimit

import (
	"time"
)

// Thresholds decide when requests are slowed down or held back.
type Thresholds struct {
	// Critical blocks requests while fewer than this many remain.
	Critical int

	// Warning throttles requests while fewer than this many remain.
	Warning int
}

// DefaultThresholds returns conservative thresholds for small quotas.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical: 2,
		Warning:  10,
	}
}

// State is the provider quota window as last reported.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the provider refills the quota.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when a response last reported the quota.
	LastUpdate time.Time `json:"last_update"`
}

// NeedsBlock returns true if requests must wait for the window to reset.
func (s *State) NeedsBlock(th Thresholds) bool {
	return s.Remaining < th.Critical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling(th Thresholds) bool {
	return s.Remaining < th.Warning && !s.NeedsBlock(th) && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the quota resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
