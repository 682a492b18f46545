package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tsclient"

// Metrics holds the client metrics
type Metrics struct {
	// Correlator
	RequestsCreated *prometheus.CounterVec
	RequestsSettled *prometheus.CounterVec
	PendingRequests prometheus.Gauge

	// Orchestrator
	NotificationsRouted *prometheus.CounterVec
	HeartbeatsReceived  *prometheus.CounterVec
	PayloadsDelivered   prometheus.Counter
	PayloadsUnmatched   prometheus.Counter
	MessagesBuffered    *prometheus.CounterVec
	CommandsPublished   *prometheus.CounterVec
	FleetRejections     *prometheus.CounterVec
	DecodeErrors        *prometheus.CounterVec

	// NATS
	NATSConnected      prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates the client metrics. They are unregistered until passed to a MetricsRegistry.
func NewMetrics() *Metrics {
	counterVec := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Metrics{
		RequestsCreated: counterVec("requests", "created_total", "Requests created", "kind"),
		RequestsSettled: counterVec("requests", "settled_total", "Requests settled", "kind", "outcome"),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "pending",
			Help:      "Requests waiting for notifications",
		}),

		NotificationsRouted: counterVec("notifications", "routed_total",
			"Notifications by route (transaction, broadcast, ignored)", "route"),
		HeartbeatsReceived: counterVec("heartbeats", "received_total", "Heartbeats ingested", "node"),
		PayloadsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payloads",
			Name:      "delivered_total",
			Help:      "Payloads delivered to plugin instances",
		}),
		PayloadsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payloads",
			Name:      "unmatched_total",
			Help:      "Payloads without a tracked pipeline or instance",
		}),
		MessagesBuffered: counterVec("warmup", "held_total", "Messages held until node warm-up", "type"),
		CommandsPublished: counterVec("commands", "published_total", "Commands sent to nodes", "action"),
		FleetRejections:   counterVec("commands", "fleet_rejections_total", "Commands refused for nodes outside the fleet", "action"),
		DecodeErrors:      counterVec("codec", "decode_errors_total", "Inbound messages that failed to decode", "subject"),

		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (0=disconnected, 1=connected)",
		}),
		NATSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total number of NATS reconnections",
		}),
		NATSCircuitBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "nats",
			Name:      "circuit_breaker",
			Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RequestsCreated,
		m.RequestsSettled,
		m.PendingRequests,
		m.NotificationsRouted,
		m.HeartbeatsReceived,
		m.PayloadsDelivered,
		m.PayloadsUnmatched,
		m.MessagesBuffered,
		m.CommandsPublished,
		m.FleetRejections,
		m.DecodeErrors,
		m.NATSConnected,
		m.NATSReconnects,
		m.NATSCircuitBreaker,
	}
}

// RecordRequestCreated counts a new request
func (m *Metrics) RecordRequestCreated(kind string) {
	m.RequestsCreated.WithLabelValues(kind).Inc()
}

// RecordRequestSettled counts a resolved or rejected request
func (m *Metrics) RecordRequestSettled(kind, outcome string) {
	m.RequestsSettled.WithLabelValues(kind, outcome).Inc()
}

// SetPendingRequests updates the pending request gauge
func (m *Metrics) SetPendingRequests(n int) {
	m.PendingRequests.Set(float64(n))
}

// RecordNotification counts a notification by route
func (m *Metrics) RecordNotification(route string) {
	m.NotificationsRouted.WithLabelValues(route).Inc()
}

// RecordHeartbeat counts a heartbeat from node
func (m *Metrics) RecordHeartbeat(node string) {
	m.HeartbeatsReceived.WithLabelValues(node).Inc()
}

// RecordPayload counts a payload, matched or not
func (m *Metrics) RecordPayload(matched bool) {
	if matched {
		m.PayloadsDelivered.Inc()
		return
	}
	m.PayloadsUnmatched.Inc()
}

// RecordBuffered counts a message stored during warm-up
func (m *Metrics) RecordBuffered(eventType string) {
	m.MessagesBuffered.WithLabelValues(eventType).Inc()
}

// RecordCommand counts a published command
func (m *Metrics) RecordCommand(action string) {
	m.CommandsPublished.WithLabelValues(action).Inc()
}

// RecordFleetRejection counts a command refused before sending
func (m *Metrics) RecordFleetRejection(action string) {
	m.FleetRejections.WithLabelValues(action).Inc()
}

// RecordDecodeError counts an undecodable inbound message
func (m *Metrics) RecordDecodeError(subject string) {
	m.DecodeErrors.WithLabelValues(subject).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (m *Metrics) RecordCircuitBreakerState(state int) {
	m.NATSCircuitBreaker.Set(float64(state))
}
