// Package metrics exposes Prometheus collectors for the learning pipeline and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "engagement_engine"

// Collector owns a private registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	sessionsTotal     *prometheus.CounterVec
	sessionDuration   prometheus.Histogram
	alertsTotal       *prometheus.CounterVec
	insightsTotal     *prometheus.CounterVec
	detectorFallbacks prometheus.Counter
	batchesTotal      *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Learning sessions by terminal status",
		},
		[]string{"status"},
	)
	c.sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time spent processing one interaction record",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5},
		},
	)
	c.alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_alerts_total",
			Help:      "Risk alerts raised by category and level",
		},
		[]string{"category", "level"},
	)
	c.insightsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_total",
			Help:      "Insights generated by priority",
		},
		[]string{"priority"},
	)
	c.detectorFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_fallbacks_total",
			Help:      "External AI-detection calls that fell back to the heuristic score",
		},
	)
	c.batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Record batches by outcome",
		},
		[]string{"outcome"},
	)
	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	c.registry.MustRegister(
		c.sessionsTotal,
		c.sessionDuration,
		c.alertsTotal,
		c.insightsTotal,
		c.detectorFallbacks,
		c.batchesTotal,
		c.httpRequestsTotal,
		c.httpRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSession records a finished session.
func (c *Collector) ObserveSession(status string, d time.Duration) {
	c.sessionsTotal.WithLabelValues(status).Inc()
	c.sessionDuration.Observe(d.Seconds())
}

// ObserveAlert counts one risk alert.
func (c *Collector) ObserveAlert(category, level string) {
	c.alertsTotal.WithLabelValues(category, level).Inc()
}

// ObserveInsight counts one generated insight.
func (c *Collector) ObserveInsight(priority string) {
	c.insightsTotal.WithLabelValues(priority).Inc()
}

// DetectorFallback counts a detector call that fell back to the heuristic.
func (c *Collector) DetectorFallback() {
	c.detectorFallbacks.Inc()
}

// ObserveBatch counts a finished batch.
func (c *Collector) ObserveBatch(outcome string) {
	c.batchesTotal.WithLabelValues(outcome).Inc()
}

// Middleware collects request counts and latencies.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
