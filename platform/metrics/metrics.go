// Package metrics holds the Prometheus collectors exported on /metrics.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Lead engine metrics
	LeadsScored   prometheus.Counter
	LeadsMerged   prometheus.Counter
	RoutingFired  *prometheus.CounterVec
	DuplicateHits prometheus.Counter

	// Bulk pipeline metrics
	BulkLeads        *prometheus.CounterVec
	BulkLeadDuration prometheus.Histogram
	BulkRuns         *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LeadsScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_scored_total",
			Help: "Total number of lead score calculations",
		}),
		LeadsMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_merged_total",
			Help: "Total number of lead merges",
		}),
		RoutingFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_routing_rules_fired_total",
				Help: "Auto-routing rule firings by rule name",
			},
			[]string{"rule"},
		),
		DuplicateHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "lead_duplicate_matches_total",
			Help: "Total number of probable duplicates detected",
		}),
		BulkLeads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bi_bulk_leads_processed_total",
				Help: "Bulk business-intelligence leads processed by outcome",
			},
			[]string{"outcome"},
		),
		BulkLeadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bi_bulk_lead_duration_seconds",
			Help:    "Time spent enriching and analysing one lead",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300},
		}),
		BulkRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bi_bulk_runs_total",
				Help: "Bulk runs by final state",
			},
			[]string{"state"},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObserveScore() {
	if m != nil {
		m.LeadsScored.Inc()
	}
}

func (m *Metrics) ObserveMerge() {
	if m != nil {
		m.LeadsMerged.Inc()
	}
}

func (m *Metrics) ObserveRouting(rule string) {
	if m != nil {
		m.RoutingFired.WithLabelValues(rule).Inc()
	}
}

func (m *Metrics) ObserveDuplicates(n int) {
	if m != nil && n > 0 {
		m.DuplicateHits.Add(float64(n))
	}
}

// ObserveBulkLead records one finished lead. outcome is complete, degraded or failed.
func (m *Metrics) ObserveBulkLead(outcome string, d time.Duration) {
	if m != nil {
		m.BulkLeads.WithLabelValues(outcome).Inc()
		m.BulkLeadDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveBulkRun(state string) {
	if m != nil {
		m.BulkRuns.WithLabelValues(state).Inc()
	}
}
