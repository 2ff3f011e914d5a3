// Package health reports whether the served engine can answer queries.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/23skdu/wordscope/internal/metrics"
	"github.com/rs/zerolog"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name        string                 `json:"name"`
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status        Status                      `json:"status"`
	Timestamp     time.Time                   `json:"timestamp"`
	Uptime        string                      `json:"uptime"`
	Version       string                      `json:"version"`
	Components    map[string]*ComponentHealth `json:"components"`
	GoVersion     string                      `json:"go_version"`
	NumGoroutines int                         `json:"num_goroutines"`
	CheckCount    int64                       `json:"check_count"`
}

// Checker defines the interface for component health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) *ComponentHealth
}

// Manager runs every registered checker on demand.
type Manager struct {
	startTime    time.Time
	version      string
	checkers     []Checker
	logger       zerolog.Logger
	checkCounter atomic.Int64
}

func NewManager(version string, logger zerolog.Logger, checkers ...Checker) *Manager {
	return &Manager{
		startTime: time.Now(),
		version:   version,
		checkers:  checkers,
		logger:    logger,
	}
}

// CheckHealth performs health checks on all registered components
func (m *Manager) CheckHealth(ctx context.Context) *SystemHealth {
	count := m.checkCounter.Add(1)
	health := &SystemHealth{
		Status:        StatusHealthy,
		Timestamp:     time.Now(),
		Uptime:        time.Since(m.startTime).Round(time.Second).String(),
		Version:       m.version,
		Components:    make(map[string]*ComponentHealth, len(m.checkers)),
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		CheckCount:    count,
	}

	for _, checker := range m.checkers {
		start := time.Now()
		ch := checker.Check(ctx)
		metrics.HealthCheckDurationSeconds.WithLabelValues(checker.Name()).Observe(time.Since(start).Seconds())
		metrics.HealthStatus.WithLabelValues(checker.Name()).Set(statusValue(ch.Status))

		health.Components[checker.Name()] = ch
		switch {
		case ch.Status == StatusUnhealthy:
			health.Status = StatusUnhealthy
		case ch.Status == StatusDegraded && health.Status == StatusHealthy:
			health.Status = StatusDegraded
		}
	}

	if health.Status != StatusHealthy {
		m.logger.Warn().Str("overall_status", string(health.Status)).Msg("Health check failed")
	}
	return health
}

func statusValue(s Status) float64 {
	switch s {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 0.5
	default:
		return 0
	}
}

// HTTPHandler returns an http handler for health checks
func (m *Manager) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := m.CheckHealth(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if health.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			http.Error(w, "Failed to encode health response", http.StatusInternalServerError)
		}
	})
}
