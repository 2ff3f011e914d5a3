package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for logging operations
var (
	// LogEntriesTotal counts log entries by level
	LogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_log_entries_total",
			Help: "Total number of log entries by level",
		},
		[]string{"level"},
	)

	// LogErrorsTotal counts error-level log entries specifically
	LogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wordscope_log_errors_total",
			Help: "Total number of error log entries",
		},
	)
)

// Config holds logger configuration options
type Config struct {
	// Format specifies the log output format: "json" or "console"
	Format string
	// Level specifies the minimum log level: "debug", "info", "warn", "error"
	Level string
	// Output specifies where logs are written (defaults to os.Stderr)
	Output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Format: "json",
		Level:  "info",
		Output: os.Stderr,
	}
}

// NewLogger creates a zerolog logger based on the provided configuration.
// Query results go to stdout, so logs default to stderr.
func NewLogger(cfg Config) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).
		Level(level).
		Hook(metricsHook{}).
		With().
		Timestamp().
		Logger()

	return logger, nil
}

// DiscardLogger returns a logger that discards all output (useful for tests)
func DiscardLogger() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("invalid log level: %s", level)
	}
}

// metricsHook counts every emitted entry in Prometheus.
type metricsHook struct{}

func (metricsHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	LogEntriesTotal.WithLabelValues(level.String()).Inc()
	if level >= zerolog.ErrorLevel && level < zerolog.NoLevel {
		LogErrorsTotal.Inc()
	}
}
