package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

var defaultLevel atomic.Int32

func init() {
	defaultLevel.Store(int32(zerolog.InfoLevel))
}

// SetLevel sets the level used by loggers created afterwards. Accepts the
// zerolog level names (trace, debug, info, warn, error).
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("SetLevel: %w", err)
	}
	defaultLevel.Store(int32(lvl))
	return nil
}

// Level returns the level applied to new loggers.
func Level() zerolog.Level {
	return zerolog.Level(defaultLevel.Load())
}

// New creates a console logger for interactive use
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(Level()).With().Timestamp().Logger()
}

// NewJSON creates a JSON logger, used by the long-running services
func NewJSON(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(Level()).With().Timestamp().Str("service", "txclean").Logger()
}

// NewWithWriter creates a logger with a custom writer, mostly for tests
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(Level()).With().Timestamp().Logger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context. Without one, a
// disabled logger is returned so library code stays quiet by default.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithRun tags a logger with the reconciliation run it belongs to
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
