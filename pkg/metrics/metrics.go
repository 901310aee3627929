package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors. All methods are nil-safe so
// components can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	checksSubmitted prometheus.Counter
	storeFailures   *prometheus.CounterVec
	cacheResets     prometheus.Counter
	wsClients       prometheus.Gauge
	broadcasts      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		checksSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "runchecks_checks_submitted_total",
			Help: "Run checks accepted into the cache.",
		}),
		storeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runchecks_store_failures_total",
			Help: "External store operations that failed.",
		}, []string{"op"}),
		cacheResets: f.NewCounter(prometheus.CounterOpts{
			Name: "runchecks_cache_resets_total",
			Help: "Midnight cache resets.",
		}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "runchecks_ws_clients",
			Help: "Connected realtime clients.",
		}),
		broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runchecks_broadcasts_total",
			Help: "Realtime events broadcast.",
		}, []string{"event"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "runchecks_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "runchecks_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ChecksSubmitted(n int) {
	if m == nil {
		return
	}
	m.checksSubmitted.Add(float64(n))
}

func (m *Metrics) StoreFailure(op string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) CacheReset() {
	if m == nil {
		return
	}
	m.cacheResets.Inc()
}

func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

func (m *Metrics) Broadcast(event string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(event).Inc()
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
