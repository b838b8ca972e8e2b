// Package metrics holds the Prometheus instrumentation for the proxy.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. Use Noop when metrics are
// disabled; the recording methods become no-ops instead of nil-pointer traps.
type Metrics struct {
	enabled bool

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHitsTotal  *prometheus.CounterVec
	cacheMissTotal  *prometheus.CounterVec
	pullsTotal      *prometheus.CounterVec
	pullDuration    prometheus.Histogram
}

// New creates and registers all collectors on the default registry. Call it
// once per process.
func New() *Metrics {
	return &Metrics{
		enabled: true,
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mvnoci_requests_total",
			Help: "Total Maven repository requests handled by the proxy",
		}, []string{"repository", "method", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mvnoci_request_duration_seconds",
			Help:    "Proxy request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"repository"}),
		cacheHitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mvnoci_cache_hits_total",
			Help: "Cache hits by cache type",
		}, []string{"cache"}),
		cacheMissTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mvnoci_cache_misses_total",
			Help: "Cache misses by cache type",
		}, []string{"cache"}),
		pullsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mvnoci_pulls_total",
			Help: "Registry pulls by outcome",
		}, []string{"repository", "outcome"}),
		pullDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mvnoci_pull_duration_seconds",
			Help:    "Registry pull duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Noop returns a disabled metrics instance.
func Noop() *Metrics {
	return &Metrics{}
}

// Enabled reports whether this instance records anything.
func (m *Metrics) Enabled() bool {
	return m.enabled
}

// RecordRequest records one handled proxy request.
func (m *Metrics) RecordRequest(repository, method string, status int, seconds float64) {
	if !m.enabled {
		return
	}
	m.requestsTotal.WithLabelValues(repository, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(repository).Observe(seconds)
}

// RecordCacheHit records a hit for the named cache ("session" or "persistent").
func (m *Metrics) RecordCacheHit(cache string) {
	if !m.enabled {
		return
	}
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a miss for the named cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	if !m.enabled {
		return
	}
	m.cacheMissTotal.WithLabelValues(cache).Inc()
}

// RecordPull records one registry pull attempt and its duration.
func (m *Metrics) RecordPull(repository string, success bool, seconds float64) {
	if !m.enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.pullsTotal.WithLabelValues(repository, outcome).Inc()
	m.pullDuration.Observe(seconds)
}
