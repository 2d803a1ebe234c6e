// Package metrics implements the observability hooks with Prometheus
// collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/siteplan/pkg/observability"
)

const namespace = "siteplan"

// Metrics holds every collector and implements all hook interfaces.
type Metrics struct {
	Registry *prometheus.Registry

	searches        *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	searchNodes     *prometheus.HistogramVec
	searchInFlight  prometheus.Gauge
	verifications   *prometheus.CounterVec
	verifyDuration  prometheus.Histogram
	cacheOperations *prometheus.CounterVec
	cacheBytes      prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them, with the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "searches_total", Help: "Assignment searches by strategy and outcome."},
			[]string{"strategy", "outcome"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "search_duration_seconds", Help: "Assignment search duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10)},
			[]string{"strategy"},
		),
		searchNodes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "search_nodes", Help: "Search tree nodes expanded per search.", Buckets: prometheus.ExponentialBuckets(1, 10, 8)},
			[]string{"strategy"},
		),
		searchInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "searches_in_flight", Help: "Searches currently running."},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "verifications_total", Help: "Solution verifications by first failed check."},
			[]string{"result"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "verify_duration_seconds", Help: "Solution verification duration in seconds.", Buckets: prometheus.DefBuckets},
		),
		cacheOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "cache_operations_total", Help: "Cache operations by key type and operation."},
			[]string{"key_type", "op"},
		),
		cacheBytes: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "cache_written_bytes_total", Help: "Bytes written to the cache."},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
	}
	m.Registry.MustRegister(
		m.searches, m.searchDuration, m.searchNodes, m.searchInFlight,
		m.verifications, m.verifyDuration,
		m.cacheOperations, m.cacheBytes,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Install registers m as the global search, verify, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetSearchHooks(m)
	observability.SetVerifyHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) OnSearchStart(context.Context, string, string, int) {
	m.searchInFlight.Inc()
}

func (m *Metrics) OnSearchComplete(_ context.Context, _, strategy string, nodes, _ int, duration time.Duration, err error) {
	m.searchInFlight.Dec()
	outcome := "solved"
	if err != nil {
		outcome = "infeasible"
	}
	m.searches.WithLabelValues(strategy, outcome).Inc()
	m.searchDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.searchNodes.WithLabelValues(strategy).Observe(float64(nodes))
}

func (m *Metrics) OnVerifyStart(context.Context, string) {}

func (m *Metrics) OnVerifyComplete(_ context.Context, _, failed string, duration time.Duration) {
	result := "ok"
	if failed != "" {
		result = failed
	}
	m.verifications.WithLabelValues(result).Inc()
	m.verifyDuration.Observe(duration.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOperations.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOperations.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOperations.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnRequest(_ context.Context, method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

var (
	_ observability.SearchHooks = (*Metrics)(nil)
	_ observability.VerifyHooks = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)
