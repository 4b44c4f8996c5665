// Package metrics provides the Prometheus metrics of the feedback API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MetricsNamespace is the namespace for all feedback API metrics.
	MetricsNamespace = "feedback_api"
)

// Snapshot outcomes recorded by SnapshotProcessed.
const (
	OutcomeFirst     = "first"
	OutcomeUnchanged = "unchanged"
	OutcomeChanged   = "changed"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	// Domain metrics
	FeedbackSubmissions *prometheus.CounterVec
	SnapshotsProcessed  *prometheus.CounterVec
	ChangedElements     *prometheus.CounterVec
	DetectionDuration   prometheus.Histogram

	// Edge metrics
	AuthFailures *prometheus.CounterVec
	RateLimited  *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestsActive  prometheus.Gauge
}

// New creates and registers all metrics on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initDomainMetrics(factory)
	m.initEdgeMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initDomainMetrics(factory promauto.Factory) {
	m.FeedbackSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "feedback_submissions_total",
			Help:      "Total number of stored feedback submissions",
		},
		[]string{"trigger_type", "response_type"},
	)

	m.SnapshotsProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "snapshots_processed_total",
			Help:      "Total number of processed snapshots by outcome",
		},
		[]string{"outcome"},
	)

	m.ChangedElements = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "changed_elements_total",
			Help:      "Total number of detected element changes",
		},
		[]string{"selector", "change_type"},
	)

	m.DetectionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "change_detection_duration_seconds",
			Help:      "Time spent comparing two snapshots",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
}

func (m *Metrics) initEdgeMetrics(factory promauto.Factory) {
	m.AuthFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected requests by reason",
		},
		[]string{"reason"},
	)

	m.RateLimited = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Total number of rate limited requests by limiter",
		},
		[]string{"limiter"},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.RequestsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: "http",
			Name:      "requests_active",
			Help:      "Number of in-flight HTTP requests",
		},
	)
}

// FeedbackStored counts one stored submission.
func (m *Metrics) FeedbackStored(triggerType, responseType string) {
	if m == nil {
		return
	}
	m.FeedbackSubmissions.WithLabelValues(triggerType, responseType).Inc()
}

// SnapshotProcessed counts one snapshot by outcome.
func (m *Metrics) SnapshotProcessed(outcome string) {
	if m == nil {
		return
	}
	m.SnapshotsProcessed.WithLabelValues(outcome).Inc()
}

// ElementChanged counts one detected change.
func (m *Metrics) ElementChanged(selector, changeType string) {
	if m == nil {
		return
	}
	m.ChangedElements.WithLabelValues(selector, changeType).Inc()
}

// ObserveDetection records how long a comparison took.
func (m *Metrics) ObserveDetection(d time.Duration) {
	if m == nil {
		return
	}
	m.DetectionDuration.Observe(d.Seconds())
}

// AuthFailed counts one rejected request.
func (m *Metrics) AuthFailed(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// Throttled counts one rate limited request.
func (m *Metrics) Throttled(limiter string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(limiter).Inc()
}

// Middleware records request count, latency and concurrency per route
// template. Unmatched routes are grouped under "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.RequestsActive.Inc()
		defer m.RequestsActive.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
