// Package metrics provides Prometheus metrics for the skyguess service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	pointsBuckets    []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Game metrics
	guesses          *prometheus.CounterVec
	guessPoints      prometheus.Histogram
	duplicateGuesses prometheus.Counter
	noFlight         prometheus.Counter
	activeLobbies    prometheus.Gauge
	activePlayers    prometheus.Gauge
	lobbiesExpired   prometheus.Counter

	// Upstream feed metrics
	feedRequestDuration *prometheus.HistogramVec
	upstreamFailures    *prometheus.CounterVec
	airportsRefresh     *prometheus.CounterVec

	// HTTP and websocket metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	wsConnections       prometheus.Gauge
	wsMessages          *prometheus.CounterVec

	// Queue, worker and publisher metrics
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueue            prometheus.Counter
	queueDequeue            prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	eventsPublished         *prometheus.CounterVec
	publishErrors           *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skyguess",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		pointsBuckets:    []float64{0, 10, 25, 50, 75, 90, 100, 150, 200},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.guesses = m.counterVec("guesses_total", "Evaluated guesses by status", "status")
	m.guessPoints = m.histogram("guess_points", "Total points awarded per evaluated guess", m.pointsBuckets)
	m.duplicateGuesses = m.counter("duplicate_guesses_total", "Lobby guesses on an already guessed flight")
	m.noFlight = m.counter("no_flight_total", "Guesses with no flight within range")
	m.activeLobbies = m.gauge("active_lobbies", "Lobbies currently held in the store")
	m.activePlayers = m.gauge("active_players", "Players currently held in the store")
	m.lobbiesExpired = m.counter("lobbies_expired_total", "Lobbies evicted after inactivity")

	m.feedRequestDuration = m.histogramVec("feed_request_duration_milliseconds",
		"Flight feed request duration in milliseconds", []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		"operation", "outcome")
	m.upstreamFailures = m.counterVec("upstream_failures_total", "Failed flight feed requests", "operation")
	m.airportsRefresh = m.counterVec("airports_refresh_total", "Airport directory refreshes by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")
	m.wsConnections = m.gauge("websocket_connections", "Open websocket connections")
	m.wsMessages = m.counterVec("websocket_messages_total", "Websocket messages received by action", "action")

	m.queueSize = m.gauge("queue_size", "Current size of the guess event queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the guess event queue")
	m.queueUtilization = m.gauge("queue_utilization", "Fraction of the guess event queue in use")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Guess events enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Guess events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Guess events rejected by the queue")
	m.workerCount = m.gauge("worker_count", "Running event workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to publish one guess event in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
	m.workerErrors = m.counter("worker_errors_total", "Guess events a worker failed to publish")
	m.eventsPublished = m.counterVec("events_published_total", "Guess events published by publisher", "publisher")
	m.publishErrors = m.counterVec("publish_errors_total", "Guess event publish failures by publisher", "publisher")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
}

// RecordGuess counts an evaluated guess and its total points.
func (m *Manager) RecordGuess(status string, points int) {
	m.guesses.WithLabelValues(status).Inc()
	m.guessPoints.Observe(float64(points))
}

// RecordGuess counts an evaluated guess on the global manager.
func RecordGuess(status string, points int) { globalManager.RecordGuess(status, points) }

// RecordDuplicateGuess counts a repeated lobby guess.
func RecordDuplicateGuess() { globalManager.duplicateGuesses.Inc() }

// RecordNoFlight counts a guess with no flight in range.
func RecordNoFlight() { globalManager.noFlight.Inc() }

// UpdateActiveLobbies sets the number of stored lobbies.
func UpdateActiveLobbies(count int) { globalManager.activeLobbies.Set(float64(count)) }

// UpdateActivePlayers sets the number of stored players.
func UpdateActivePlayers(count int) { globalManager.activePlayers.Set(float64(count)) }

// RecordLobbiesExpired counts lobbies removed by the sweeper.
func RecordLobbiesExpired(count int) { globalManager.lobbiesExpired.Add(float64(count)) }

// RecordFeedRequestDuration observes one feed call. outcome is "ok" or "error".
func RecordFeedRequestDuration(operation, outcome string, durationMs float64) {
	globalManager.feedRequestDuration.WithLabelValues(operation, outcome).Observe(durationMs)
}

// RecordUpstreamFailure counts a failed feed call.
func RecordUpstreamFailure(operation string) {
	globalManager.upstreamFailures.WithLabelValues(operation).Inc()
}

// RecordAirportsRefresh counts an airport directory refresh.
func RecordAirportsRefresh(outcome string) {
	globalManager.airportsRefresh.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// IncWebsocketConnections tracks a newly opened socket.
func IncWebsocketConnections() { globalManager.wsConnections.Inc() }

// DecWebsocketConnections tracks a closed socket.
func DecWebsocketConnections() { globalManager.wsConnections.Dec() }

// UpdateWebsocketConnections resyncs the open socket gauge.
func UpdateWebsocketConnections(count int) { globalManager.wsConnections.Set(float64(count)) }

// RecordWebsocketMessage counts a received socket message.
func RecordWebsocketMessage(action string) {
	globalManager.wsMessages.WithLabelValues(action).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization in [0, 1].
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue counts an enqueued event.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue counts a dequeued event.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError counts an event the queue rejected.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes the time to handle one event.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts an event a worker failed to handle.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordEventPublished counts a published guess event.
func RecordEventPublished(publisher string) {
	globalManager.eventsPublished.WithLabelValues(publisher).Inc()
}

// RecordPublishError counts a failed publish.
func RecordPublishError(publisher string) {
	globalManager.publishErrors.WithLabelValues(publisher).Inc()
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
