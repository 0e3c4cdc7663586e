// Package logging configures zerolog for canvas-mcp and carries per-call
// loggers through contexts.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// ServiceName is attached to every log line.
const ServiceName = "canvas-mcp"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to. Nil means os.Stderr; stdout
	// belongs to the stdio transport.
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

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRequest derives a logger tagged with a fresh request id and stores
// it in the returned context.
func WithRequest(ctx context.Context, base zerolog.Logger) (context.Context, zerolog.Logger, string) {
	id := uuid.NewString()
	logger := base.With().Str("request_id", id).Logger()
	return logger.WithContext(ctx), logger, id
}

// FromContext returns the logger stored by WithRequest, or the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// Log Level Guidelines:
//
// Debug: request flow and quota bookkeeping
//   - Admission waits, page fetches, quota header updates
//   - Per-item extraction outcomes
//
// Info: normal operation
//   - Server startup/shutdown, transport selected
//   - Completed tool calls
//
// Warn: degraded but serving
//   - Quota below the warning threshold
//   - Listings truncated at the page limit
//   - Retries, failed tool calls, failed search categories
//
// Error: needs attention
//   - Quota below the critical threshold
//   - Configuration errors, listener failures
//
// Context Fields:
//   - component: emitting package (canvas-client, content-aggregator, mcp-server, ...)
//   - endpoint: Canvas path template, numeric segments replaced by :id
//   - status: HTTP status code
//   - kind: error kind (unauthorized, forbidden, rate_limited, ...)
//   - course_id, module_id, item_id: Canvas identifiers
//   - tool, request_id: MCP tool name and per-call id
//   - quota_remaining, request_cost: Canvas leaky-bucket headers
