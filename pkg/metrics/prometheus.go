package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values used by the vector metrics.
const (
	OutcomeVoted   = "voted"
	OutcomeSkipped = "skipped"

	CommitApplied = "applied"
	CommitFailed  = "failed"
	CommitEmpty   = "empty"
	CommitRetried = "retried"
	CommitDropped = "dropped"
)

// Manager manages all Prometheus metrics for the ranking engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsStarted prometheus.Counter
	sessionsEnded   prometheus.Counter
	sessionsActive  prometheus.Gauge

	// Rounds
	rounds            *prometheus.CounterVec
	staleSubmissions  prometheus.Counter
	matchmakerExhaust prometheus.Counter
	ratingDelta       prometheus.Histogram

	// Promotions
	promotions        prometheus.Counter
	promotionFailures prometheus.Counter

	// Commit handoff
	commits         *prometheus.CounterVec
	commitBatchSize prometheus.Histogram
	commitLatency   prometheus.Histogram

	// Outbox
	outboxDepth   prometheus.Gauge
	outboxRetries prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Ops HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "duel",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_started_total",
		Help:        "Total number of ranking sessions started",
		ConstLabels: labels,
	})

	m.sessionsEnded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_ended_total",
		Help:        "Total number of ranking sessions ended",
		ConstLabels: labels,
	})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_active",
		Help:        "Number of sessions currently active",
		ConstLabels: labels,
	})

	m.rounds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rounds_total",
		Help:        "Total number of resolved rounds by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.staleSubmissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stale_submissions_total",
		Help:        "Votes or skips rejected because they did not match the issued pair",
		ConstLabels: labels,
	})

	m.matchmakerExhaust = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matchmaker_exhausted_total",
		Help:        "Times a session ran out of pairs or hit its round limit",
		ConstLabels: labels,
	})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rating_delta_points",
		Help:        "Absolute rating change applied to the winner of a voted round",
		Buckets:     []float64{1, 2, 4, 8, 12, 16, 20, 24, 28, 32},
		ConstLabels: labels,
	})

	m.promotions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "promotions_total",
		Help:        "Challengers persisted after their first win",
		ConstLabels: labels,
	})

	m.promotionFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "promotion_failures_total",
		Help:        "Promotions rejected by the record creator",
		ConstLabels: labels,
	})

	m.commits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "commits_total",
		Help:        "Commit batches handed to storage by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.commitBatchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "commit_batch_size",
		Help:        "Number of rating updates per commit batch",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		ConstLabels: labels,
	})

	m.commitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "commit_latency_milliseconds",
		Help:        "Time spent applying a commit batch in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.outboxDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "outbox_depth",
		Help:        "Commit batches waiting for a retry",
		ConstLabels: labels,
	})

	m.outboxRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "outbox_retries_total",
		Help:        "Retry attempts made by the commit outbox worker",
		ConstLabels: labels,
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and kind",
		ConstLabels: labels,
	}, []string{"component", "kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Ops HTTP requests by endpoint, method and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "Ops HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method"})
}

// SessionStarted records a new active session.
func (m *Manager) SessionStarted() {
	if !m.enabled {
		return
	}
	m.sessionsStarted.Inc()
	m.sessionsActive.Inc()
}

// SessionEnded records a session leaving the active set.
func (m *Manager) SessionEnded() {
	if !m.enabled {
		return
	}
	m.sessionsEnded.Inc()
	m.sessionsActive.Dec()
}

// Round records a resolved round. delta is the winner's gain and is ignored
// for skips.
func (m *Manager) Round(skipped bool, delta float64) {
	if !m.enabled {
		return
	}
	if skipped {
		m.rounds.WithLabelValues(OutcomeSkipped).Inc()
		return
	}
	m.rounds.WithLabelValues(OutcomeVoted).Inc()
	if delta < 0 {
		delta = -delta
	}
	m.ratingDelta.Observe(delta)
}

// StaleSubmission records a rejected vote or skip.
func (m *Manager) StaleSubmission() {
	if m.enabled {
		m.staleSubmissions.Inc()
	}
}

// Exhausted records a session that has no pair left to show.
func (m *Manager) Exhausted() {
	if m.enabled {
		m.matchmakerExhaust.Inc()
	}
}

// Promotion records a successful or failed challenger promotion.
func (m *Manager) Promotion(ok bool) {
	if !m.enabled {
		return
	}
	if ok {
		m.promotions.Inc()
		return
	}
	m.promotionFailures.Inc()
}

// Commit records the result of a commit handoff and its batch size.
func (m *Manager) Commit(result string, size int, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.commits.WithLabelValues(result).Inc()
	if size > 0 {
		m.commitBatchSize.Observe(float64(size))
	}
	if latencyMs > 0 {
		m.commitLatency.Observe(latencyMs)
	}
}

// OutboxDepth sets the number of queued commit batches.
func (m *Manager) OutboxDepth(n int) {
	if m.enabled {
		m.outboxDepth.Set(float64(n))
	}
}

// OutboxRetry records a retry attempt.
func (m *Manager) OutboxRetry() {
	if m.enabled {
		m.outboxRetries.Inc()
	}
}

// Error records an error by component and kind.
func (m *Manager) Error(component, kind string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, kind).Inc()
	}
}

// HTTPRequest records one served ops request.
func (m *Manager) HTTPRequest(endpoint, method, code string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// Default returns the global manager registered on the custom registry.
func Default() *Manager {
	return globalManager
}

// RecordSessionStarted records a started session on the global manager.
func RecordSessionStarted() { globalManager.SessionStarted() }

// RecordSessionEnded records an ended session on the global manager.
func RecordSessionEnded() { globalManager.SessionEnded() }

// RecordRound records a resolved round on the global manager.
func RecordRound(skipped bool, delta float64) { globalManager.Round(skipped, delta) }

// RecordStaleSubmission records a rejected submission on the global manager.
func RecordStaleSubmission() { globalManager.StaleSubmission() }

// RecordExhausted records matchmaker exhaustion on the global manager.
func RecordExhausted() { globalManager.Exhausted() }

// RecordPromotion records a promotion attempt on the global manager.
func RecordPromotion(ok bool) { globalManager.Promotion(ok) }

// RecordCommit records a commit handoff on the global manager.
func RecordCommit(result string, size int, latencyMs float64) {
	globalManager.Commit(result, size, latencyMs)
}

// UpdateOutboxDepth sets the outbox depth on the global manager.
func UpdateOutboxDepth(n int) { globalManager.OutboxDepth(n) }

// RecordOutboxRetry records an outbox retry on the global manager.
func RecordOutboxRetry() { globalManager.OutboxRetry() }

// RecordErrorByComponent records an error on the global manager.
func RecordErrorByComponent(component, kind string) { globalManager.Error(component, kind) }

// RecordHTTPRequest records an ops request on the global manager.
func RecordHTTPRequest(endpoint, method, code string, durationMs float64) {
	globalManager.HTTPRequest(endpoint, method, code, durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
