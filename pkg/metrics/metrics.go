package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all service metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Courier API metrics
	CourierRequestsTotal   *prometheus.CounterVec
	CourierRequestDuration *prometheus.HistogramVec

	// AWB lifecycle metrics
	AWBGenerations  *prometheus.CounterVec
	AWBDeletions    prometheus.Counter
	LabelsAssembled *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	SideEffects     *prometheus.CounterVec

	// Kafka / outbox metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaEventsConsumed  *prometheus.CounterVec
	OutboxPending        prometheus.Gauge
	OutboxRetries        *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "optimus",
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.CourierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "courier_requests_total",
			Help:      "Requests sent to the courier API by action and outcome",
		},
		[]string{"service", "action", "outcome"},
	)

	m.CourierRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "courier_request_duration_seconds",
			Help:      "Courier API round trip duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "action"},
	)

	m.AWBGenerations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "awb_generations_total",
			Help:      "AWB generation attempts by trigger and outcome",
		},
		[]string{"service", "trigger", "outcome"},
	)

	m.AWBDeletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "awb_deletions_total",
			Help:        "AWB numbers cleared from orders",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.LabelsAssembled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "labels_assembled_total",
			Help:      "Label documents produced by kind (single, merged, zip)",
		},
		[]string{"service", "kind"},
	)

	m.Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "notifications_total",
			Help:      "Customer notification emails by transport and status",
		},
		[]string{"service", "transport", "status"},
	)

	m.SideEffects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "awb_side_effects_total",
			Help:      "Post-generation side effects by name and status",
		},
		[]string{"service", "name", "status"},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "event_type", "status"},
	)

	m.KafkaEventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_consumed_total",
			Help:      "Total number of Kafka events consumed",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "outbox_pending_events",
			Help:        "Unpublished outbox events seen on the last poll",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.OutboxRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_retries_total",
			Help:      "Outbox publish retries",
		},
		[]string{"service", "event_type"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.CourierRequestsTotal,
		m.CourierRequestDuration,
		m.AWBGenerations,
		m.AWBDeletions,
		m.LabelsAssembled,
		m.Notifications,
		m.SideEffects,
		m.KafkaEventsPublished,
		m.KafkaEventsConsumed,
		m.OutboxPending,
		m.OutboxRetries,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

// RecordCourierRequest records one courier API round trip
func (m *Metrics) RecordCourierRequest(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CourierRequestsTotal.WithLabelValues(m.serviceName, action, outcome).Inc()
	m.CourierRequestDuration.WithLabelValues(m.serviceName, action).Observe(duration.Seconds())
}

// RecordAWBGeneration records the outcome of one generation attempt
func (m *Metrics) RecordAWBGeneration(trigger, outcome string) {
	if m == nil {
		return
	}
	m.AWBGenerations.WithLabelValues(m.serviceName, trigger, outcome).Inc()
}

// RecordAWBDeletion records a local AWB deletion
func (m *Metrics) RecordAWBDeletion() {
	if m == nil {
		return
	}
	m.AWBDeletions.Inc()
}

// RecordLabelsAssembled records a produced label document
func (m *Metrics) RecordLabelsAssembled(kind string) {
	if m == nil {
		return
	}
	m.LabelsAssembled.WithLabelValues(m.serviceName, kind).Inc()
}

// RecordNotification records a notification delivery attempt
func (m *Metrics) RecordNotification(transport string, success bool) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(m.serviceName, transport, statusLabel(success)).Inc()
}

// RecordSideEffect records the outcome of a best-effort post-generation task
func (m *Metrics) RecordSideEffect(name string, success bool) {
	if m == nil {
		return
	}
	m.SideEffects.WithLabelValues(m.serviceName, name, statusLabel(success)).Inc()
}

// RecordOutboxPublish records an outbox publish attempt
func (m *Metrics) RecordOutboxPublish(eventType string, success bool, _ time.Duration) {
	if m == nil {
		return
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, eventType, statusLabel(success)).Inc()
}

// RecordOutboxRetry records an outbox retry
func (m *Metrics) RecordOutboxRetry(eventType string) {
	if m == nil {
		return
	}
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// SetOutboxPending sets the number of pending outbox events
func (m *Metrics) SetOutboxPending(count int) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(count))
}

// RecordKafkaConsume records a Kafka consume event
func (m *Metrics) RecordKafkaConsume(topic, eventType string, success bool) {
	if m == nil {
		return
	}
	m.KafkaEventsConsumed.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}
