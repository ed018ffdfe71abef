// Package logging configures the process-wide zerolog logger and hands out
// per-component loggers.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every tier probe and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs lifecycle events and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs degraded operation and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed computations only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Component loggers created
// with NewLogger afterwards inherit its output and level.
func Setup(cfg Config) zerolog.Logger {
	level, _ := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	_, ok := parseLevel(LogLevel(s))
	return ok
}

// parseLevel converts LogLevel to zerolog.Level, falling back to info.
func parseLevel(level LogLevel) (zerolog.Level, bool) {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - Tier probes (hit level, miss, key)
//   - Retry scheduling (attempt, backoff)
//
// Info: lifecycle events
//   - Server startup/shutdown
//   - Cache clears
//   - Warm-up progress and completion
//   - Backend recovery after retry
//
// Warn: degraded but serving
//   - Shared tier read/write/clear failures (request falls through)
//   - Retry attempts exhausted
//   - Cancelled computations
//
// Error: no value could be produced
//   - Backend failures and timeouts
//   - Configuration errors at startup
//
// Context Fields:
//   - component: cascade, backend, server
//   - namespace: cache key namespace
//   - key: cache key
//   - level: tier that served the request (fast_tier, shared_tier)
//   - duration: backend call duration
//   - error_class: backend error classification (client, server, rate_limit, network)
//   - status: backend HTTP status code
