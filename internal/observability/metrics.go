// Package observability provides metrics and tracing for the application.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quad_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EventsPublished counts realtime events published by topic kind and event type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quad_events_published_total",
		Help: "Total realtime events published by topic kind and event type",
	}, []string{"topic_kind", "event_type"})

	// TopicSubscriptions is the gauge of active topic subscriptions in the event hub.
	TopicSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quad_topic_subscriptions",
		Help: "Number of active (topic, client) subscriptions in the event hub",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quad_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// NotificationsCreated counts notifications written, by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quad_notifications_created_total",
		Help: "Total notifications created by type",
	}, []string{"type"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
