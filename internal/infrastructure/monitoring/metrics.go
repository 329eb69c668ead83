package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationsPending prometheus.Gauge

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	// Session metrics
	SessionState       *prometheus.GaugeVec
	SessionGeneration  prometheus.Gauge
	SessionsOpened     prometheus.Counter
	ParticipantsActive prometheus.Gauge
	StaleCallbacks     *prometheus.CounterVec
	EngineInitTotal    *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Webhook metrics
	WebhookDeliveries *prometheus.CounterVec
	WebhookBreaker    *prometheus.GaugeVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON state endpoint
type Snapshot struct {
	OperationsTotal int64   `json:"operations_total"`
	OperationErrors int64   `json:"operation_errors"`
	EventsPublished int64   `json:"events_published"`
	EventsDropped   int64   `json:"events_dropped"`
	StaleCallbacks  int64   `json:"stale_callbacks"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// sessionStates lists every label value of SessionState so exactly one is 1
var sessionStates = []string{"closed", "opening", "initialized", "connecting", "connected", "disconnecting", "failed"}

// NewMetrics creates a metrics collector registered on reg.
// A nil reg registers on the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_http_requests_total",
				Help: "Total number of host bridge HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confbridge_http_request_duration_seconds",
				Help:    "Host bridge HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_operations_total",
				Help: "Host operations by kind and terminal outcome",
			},
			[]string{"kind", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confbridge_operation_duration_seconds",
				Help:    "Time from issuing a host operation to its completion",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"kind"},
		),
		OperationsPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confbridge_operations_pending",
				Help: "Host operations awaiting completion",
			},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_events_published_total",
				Help: "Events published to the router",
			},
			[]string{"type"},
		),
		EventsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_events_delivered_total",
				Help: "Events delivered to the host listener",
			},
			[]string{"type"},
		),
		EventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_events_dropped_total",
				Help: "Events dropped because no current listener matched",
			},
			[]string{"type"},
		),

		SessionState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "confbridge_session_state",
				Help: "Current session state (1 for the active state)",
			},
			[]string{"state"},
		),
		SessionGeneration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confbridge_session_generation",
				Help: "Current session generation token",
			},
		),
		SessionsOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "confbridge_sessions_opened_total",
				Help: "Sessions that reached the initialized state",
			},
		),
		ParticipantsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confbridge_participants_active",
				Help: "Participants in the connected room",
			},
		),
		StaleCallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_stale_callbacks_total",
				Help: "Engine callbacks discarded because their generation was no longer live",
			},
			[]string{"callback"},
		),
		EngineInitTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_engine_init_total",
				Help: "Engine runtime bring-up attempts by result",
			},
			[]string{"result"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confbridge_websocket_connections",
				Help: "Connected event stream clients",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_websocket_messages_total",
				Help: "Event stream messages by result",
			},
			[]string{"result"},
		),

		WebhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confbridge_webhook_deliveries_total",
				Help: "Event webhook deliveries by result",
			},
			[]string{"result"},
		),
		WebhookBreaker: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "confbridge_webhook_breaker_state",
				Help: "Webhook circuit state (1 for the current state)",
			},
			[]string{"state"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "confbridge_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),
	}

	m.SetSessionState("closed")
	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation records the terminal outcome of a host operation
func (m *Metrics) RecordOperation(kind, outcome string, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(kind, outcome).Inc()
	m.OperationDuration.WithLabelValues(kind).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.OperationsTotal++
	if outcome != "ok" {
		m.snapshot.OperationErrors++
	}
	m.mu.Unlock()
}

// RecordEventPublished counts an event entering the router
func (m *Metrics) RecordEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
	m.mu.Lock()
	m.snapshot.EventsPublished++
	m.mu.Unlock()
}

// RecordEventDelivered counts an event handed to the listener
func (m *Metrics) RecordEventDelivered(eventType string) {
	m.EventsDelivered.WithLabelValues(eventType).Inc()
}

// RecordEventDropped counts an event no listener received
func (m *Metrics) RecordEventDropped(eventType string) {
	m.EventsDropped.WithLabelValues(eventType).Inc()
	m.mu.Lock()
	m.snapshot.EventsDropped++
	m.mu.Unlock()
}

// RecordStaleCallback counts an engine callback rejected by generation
func (m *Metrics) RecordStaleCallback(callback string) {
	m.StaleCallbacks.WithLabelValues(callback).Inc()
	m.mu.Lock()
	m.snapshot.StaleCallbacks++
	m.mu.Unlock()
}

// RecordEngineInit records the runtime bring-up result
func (m *Metrics) RecordEngineInit(result string) {
	m.EngineInitTotal.WithLabelValues(result).Inc()
}

// SetSessionState marks state as the only active session state
func (m *Metrics) SetSessionState(state string) {
	for _, s := range sessionStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.SessionState.WithLabelValues(s).Set(value)
	}
}

// SetGeneration publishes the live generation token
func (m *Metrics) SetGeneration(generation uint64) {
	m.SessionGeneration.Set(float64(generation))
}

// IncSessionsOpened counts a session reaching the initialized state
func (m *Metrics) IncSessionsOpened() {
	m.SessionsOpened.Inc()
}

// SetParticipants publishes the participant map size
func (m *Metrics) SetParticipants(count int) {
	m.ParticipantsActive.Set(float64(count))
}

// SetPending publishes the number of outstanding operations
func (m *Metrics) SetPending(count int) {
	m.OperationsPending.Set(float64(count))
}

// IncWSConnections increments websocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements websocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// RecordWSMessage counts an event stream write
func (m *Metrics) RecordWSMessage(result string) {
	m.WSMessages.WithLabelValues(result).Inc()
}

// RecordWebhookDelivery counts a webhook POST by result
func (m *Metrics) RecordWebhookDelivery(result string) {
	m.WebhookDeliveries.WithLabelValues(result).Inc()
}

// SetWebhookBreaker marks state as the only active circuit state
func (m *Metrics) SetWebhookBreaker(state string) {
	for _, s := range []string{"closed", "half-open", "open"} {
		value := 0.0
		if s == state {
			value = 1
		}
		m.WebhookBreaker.WithLabelValues(s).Set(value)
	}
}

// UpdateUptime updates the uptime metric
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// GetSnapshot returns the current counters for the JSON state endpoint
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
