package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the custom Prometheus metrics of the portal
type Metrics struct {
	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Store writes by collection and operation
	StoreWrites *prometheus.CounterVec

	// RSS metrics
	FeedFetches      *prometheus.CounterVec
	FeedFetchLatency prometheus.Histogram
	FeedCacheHits    prometheus.Counter

	FabTransitions *prometheus.CounterVec
	AuditEvents    *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// InitMetrics registers the Prometheus metrics once per process
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "portal_websocket_connections_active",
				Help: "Number of active collection subscriptions over WebSocket",
			}),

			WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "portal_websocket_messages_total",
				Help: "Total number of WebSocket messages by type",
			}, []string{"type", "direction"}),

			StoreWrites: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "portal_store_writes_total",
				Help: "Total number of collection writes by collection and operation",
			}, []string{"collection", "op"}),

			FeedFetches: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "portal_feed_fetches_total",
				Help: "Total number of upstream feed fetches by result",
			}, []string{"result"}),

			FeedFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "portal_feed_fetch_duration_seconds",
				Help:    "Upstream feed fetch latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			}),

			FeedCacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "portal_feed_cache_hits_total",
				Help: "Total number of feeds served from cache",
			}),

			FabTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "portal_fab_transitions_total",
				Help: "Total number of FAB pipeline transitions by action",
			}, []string{"action"}),

			AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "portal_audit_events_total",
				Help: "Total number of audit events recorded by type",
			}, []string{"event_type"}),
		}
	})
	return globalMetrics
}

// GetMetrics returns the global metrics instance, or nil before InitMetrics
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	if m != nil {
		m.WebSocketConnections.Inc()
	}
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	if m != nil {
		m.WebSocketConnections.Dec()
	}
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	if m != nil {
		m.WebSocketMessages.WithLabelValues(msgType, direction).Inc()
	}
}

// RecordStoreWrite records a collection write
func (m *Metrics) RecordStoreWrite(collection, op string) {
	if m != nil {
		m.StoreWrites.WithLabelValues(collection, op).Inc()
	}
}

// RecordFeedFetch records an upstream fetch and its latency
func (m *Metrics) RecordFeedFetch(result string, seconds float64) {
	if m != nil {
		m.FeedFetches.WithLabelValues(result).Inc()
		m.FeedFetchLatency.Observe(seconds)
	}
}

// RecordFeedCacheHit records a feed served from cache
func (m *Metrics) RecordFeedCacheHit() {
	if m != nil {
		m.FeedCacheHits.Inc()
	}
}

// RecordFabTransition records a FAB state change
func (m *Metrics) RecordFabTransition(action string) {
	if m != nil {
		m.FabTransitions.WithLabelValues(action).Inc()
	}
}

// RecordAuditEvent records a persisted audit event
func (m *Metrics) RecordAuditEvent(eventType string) {
	if m != nil {
		m.AuditEvents.WithLabelValues(eventType).Inc()
	}
}
