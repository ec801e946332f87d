// Package telemetry provides application-level observability: structured
// logging setup and Prometheus metrics.
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP listener started by main.go (default port
// 9090, path /metrics). The endpoint is deliberately kept off the main API
// router so the scrape path bypasses auth and rate-limiting middleware.
//
// HTTP metrics use c.FullPath() (the Gin route template such as
// /api/v1/tasks/:id/status) rather than the raw URL to keep label
// cardinality bounded.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, labelled by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, labelled by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Domain metrics, incremented by the core services after a successful commit.
var (
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total login attempts, labelled by result (success, invalid, role_mismatch).",
		},
		[]string{"result"},
	)

	TaskMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_mutations_total",
			Help: "Total committed task mutations, labelled by action (create, status, position, assign, priority, delete).",
		},
		[]string{"action"},
	)

	MeetingMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_mutations_total",
			Help: "Total committed meeting mutations, labelled by action (create, rsvp).",
		},
		[]string{"action"},
	)

	RSVPResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rsvp_responses_total",
			Help: "Total committed RSVP responses, labelled by status (accepted, declined).",
		},
		[]string{"status"},
	)
)

// DBPoolOpenConnections reports the number of open connections in the
// database pool, polled periodically by StartDBPoolGauge.
var DBPoolOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_pool_open_connections",
		Help: "Number of open connections in the database pool.",
	},
)

// StartDBPoolGauge polls the database pool stats at the given interval and
// updates DBPoolOpenConnections until stop is closed.
func StartDBPoolGauge(db *sql.DB, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				DBPoolOpenConnections.Set(float64(db.Stats().OpenConnections))
			case <-stop:
				return
			}
		}
	}()
	slog.Debug("db pool gauge started", "interval", interval.String())
}
