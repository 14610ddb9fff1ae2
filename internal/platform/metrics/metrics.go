package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter

	recordsCreated       *prometheus.CounterVec
	decisions            *prometheus.CounterVec
	workflowsCompleted   *prometheus.CounterVec
	notificationsCreated prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests refused by the rate limiter.",
		}),
		recordsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approval_records_created_total",
				Help: "Approval records created by approval type.",
			},
			[]string{"approval_type"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approval_decisions_total",
				Help: "Approve and reject decisions by approval type.",
			},
			[]string{"approval_type", "status"},
		),
		workflowsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approval_workflows_completed_total",
				Help: "Workflows that reached a terminal outcome.",
			},
			[]string{"approval_type", "outcome"},
		),
		notificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "In-app notifications written.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requestsTotal,
		c.requestDuration,
		c.rateLimited,
		c.recordsCreated,
		c.decisions,
		c.workflowsCompleted,
		c.notificationsCreated,
	)
	return c
}

// Record observes one finished HTTP request. route is the chi pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) RecordsCreated(approvalType string, count int) {
	if count > 0 {
		c.recordsCreated.WithLabelValues(approvalType).Add(float64(count))
	}
}

func (c *Collector) Decision(approvalType, status string) {
	c.decisions.WithLabelValues(approvalType, status).Inc()
}

func (c *Collector) WorkflowCompleted(approvalType, outcome string) {
	c.workflowsCompleted.WithLabelValues(approvalType, outcome).Inc()
}

func (c *Collector) NotificationsCreated(count int) {
	c.notificationsCreated.Add(float64(count))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
