package cascade

import "errors"

// Errors surfaced by the cascade. Causes stay in the chain, so callers can
// match both the sentinel and the underlying error with errors.Is.
var (
	// ErrConfiguration is returned by New for invalid construction parameters.
	ErrConfiguration = errors.New("invalid cascade configuration")

	// ErrBackendFailed is returned when the backend could not produce a value.
	// Nothing is cached on this path.
	ErrBackendFailed = errors.New("backend computation failed")

	// ErrTimeout is returned when the caller's deadline elapsed during the
	// backend call. A late result is discarded.
	ErrTimeout = errors.New("backend computation timed out")

	// ErrSharedTier is returned for shared tier failures when
	// Config.StrictSharedTier is set, and by ClearCaches.
	ErrSharedTier = errors.New("shared tier unavailable")
)
