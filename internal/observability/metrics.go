// Package observability provides prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "happythoughts"

// Metrics holds the domain collectors. A nil *Metrics records nothing.
type Metrics struct {
	ThoughtsCreated    prometheus.Counter
	Likes              prometheus.Counter
	AuthAttempts       *prometheus.CounterVec
	RedisErrors        *prometheus.CounterVec
	QueryLatency       *prometheus.HistogramVec
	WSConnections      prometheus.Gauge
	WSBackpressureDrop *prometheus.CounterVec
}

// NewMetrics registers the domain collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ThoughtsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thoughts_created_total",
			Help:      "Total number of thoughts created",
		}),
		Likes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_total",
			Help:      "Total number of hearts added through the like action",
		}),
		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Signup and login attempts by outcome",
		}, []string{"action", "result"}),
		RedisErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_errors_total",
			Help:      "Total number of Redis errors by command",
		}, []string{"command"}),
		QueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_query_latency_seconds",
			Help:      "Database query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "table"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of active thought-stream WebSocket connections",
		}),
		WSBackpressureDrop: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_backpressure_drops_total",
			Help:      "Events dropped because a WebSocket client fell behind",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RecordThoughtCreated() {
	if m != nil {
		m.ThoughtsCreated.Inc()
	}
}

func (m *Metrics) RecordLike() {
	if m != nil {
		m.Likes.Inc()
	}
}

// RecordAuth counts a signup or login attempt; result is "success" or "failure".
func (m *Metrics) RecordAuth(action, result string) {
	if m != nil {
		m.AuthAttempts.WithLabelValues(action, result).Inc()
	}
}

func (m *Metrics) RecordRedisError(command string) {
	if m != nil {
		m.RedisErrors.WithLabelValues(command).Inc()
	}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *Metrics) TrackQuery(operation, table string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.QueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) WSConnected() {
	if m != nil {
		m.WSConnections.Inc()
	}
}

func (m *Metrics) WSDisconnected() {
	if m != nil {
		m.WSConnections.Dec()
	}
}

func (m *Metrics) RecordWSDrop(reason string) {
	if m != nil {
		m.WSBackpressureDrop.WithLabelValues(reason).Inc()
	}
}
