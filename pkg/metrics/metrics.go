// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never collide
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	decisions *prometheus.CounterVec
}

// New registers the HTTP and rate limit collectors plus the Go runtime ones
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limiter outcomes by policy.",
		}, []string{"policy", "decision"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.decisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for other exporters
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDecision counts one limiter outcome
func (m *Metrics) ObserveDecision(policy string, allowed bool) {
	decision := "rejected"
	if allowed {
		decision = "allowed"
	}
	m.decisions.WithLabelValues(policy, decision).Inc()
}

// TrackKeys publishes ratelimit_tracked_keys{policy} from source at scrape time
func (m *Metrics) TrackKeys(policies []string, source func(policy string) int) error {
	return m.registry.Register(&trackedKeys{
		desc: prometheus.NewDesc(
			"ratelimit_tracked_keys",
			"Caller keys currently held in memory by each policy.",
			[]string{"policy"}, nil,
		),
		policies: policies,
		source:   source,
	})
}

type trackedKeys struct {
	desc     *prometheus.Desc
	policies []string
	source   func(string) int
}

func (t *trackedKeys) Describe(ch chan<- *prometheus.Desc) {
	ch <- t.desc
}

func (t *trackedKeys) Collect(ch chan<- prometheus.Metric) {
	for _, p := range t.policies {
		ch <- prometheus.MustNewConstMetric(t.desc, prometheus.GaugeValue, float64(t.source(p)), p)
	}
}

// Middleware records request counts and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
