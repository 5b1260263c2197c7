// Package metrics exposes the prometheus collectors of the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/huangang/taskboard/internal/policy"
)

const namespace = "taskboard"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthzDecisions *prometheus.CounterVec
	DegradedReads  *prometheus.CounterVec
	CascadeDeletes *prometheus.CounterVec
	ActivityEvents *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthzDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authz_decisions_total",
				Help:      "Authorization decisions by entity, action and result",
			},
			[]string{"entity", "action", "result"},
		),
		DegradedReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_reads_total",
				Help:      "Reads answered from a partial snapshot",
			},
			[]string{"source"},
		),
		CascadeDeletes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_deletes_total",
				Help:      "Project deletions by outcome",
			},
			[]string{"result"},
		),
		ActivityEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activity_events_total",
				Help:      "Activity events by type and delivery mode",
			},
			[]string{"event", "mode"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisions,
		m.DegradedReads,
		m.CascadeDeletes,
		m.ActivityEvents,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency, labelled by route template
// so path parameters do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveDecision implements policy.Observer.
func (m *Metrics) ObserveDecision(entity policy.Entity, action policy.Action, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.AuthzDecisions.WithLabelValues(string(entity), string(action), result).Inc()
}

func (m *Metrics) DegradedRead(source string) {
	if m == nil {
		return
	}
	m.DegradedReads.WithLabelValues(source).Inc()
}

func (m *Metrics) CascadeDelete(ok bool) {
	if m == nil {
		return
	}
	result := "aborted"
	if ok {
		result = "completed"
	}
	m.CascadeDeletes.WithLabelValues(result).Inc()
}

func (m *Metrics) ActivityEvent(event, mode string) {
	if m == nil {
		return
	}
	m.ActivityEvents.WithLabelValues(event, mode).Inc()
}
