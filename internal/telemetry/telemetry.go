// Package telemetry groups the store's Prometheus metrics by subsystem
// (store, backend, http) the way the teacher's MetricsRegistry groups
// metrics by category, trimmed to this domain's counters.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "msgstore"

// Registry is the central collection of this store's Prometheus metrics.
// Subsystems are lazily initialized on first access, mirroring the
// teacher's per-category sync.Once pattern.
type Registry struct {
	storeOnce   sync.Once
	backendOnce sync.Once
	httpOnce    sync.Once

	store   *StoreMetrics
	backend *BackendMetrics
	http    *HTTPMetrics
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide singleton Registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = &Registry{}
	})
	return defaultRegistry
}

// Store returns the store-engine metrics group.
func (r *Registry) Store() *StoreMetrics {
	r.storeOnce.Do(func() { r.store = newStoreMetrics() })
	return r.store
}

// Backend returns the durable-backend metrics group.
func (r *Registry) Backend() *BackendMetrics {
	r.backendOnce.Do(func() { r.backend = newBackendMetrics() })
	return r.backend
}

// HTTP returns the transport metrics group.
func (r *Registry) HTTP() *HTTPMetrics {
	r.httpOnce.Do(func() { r.http = newHTTPMetrics() })
	return r.http
}

// StoreMetrics holds Prometheus gauges/counters shaped after
// internal/stats.Stats. No code in this module calls Registry.Store or
// updates these metrics, so they are neither registered nor exported.
type StoreMetrics struct {
	InsertedTotal prometheus.Counter
	DeletedTotal  prometheus.Counter
	PrunedTotal   prometheus.Counter
	ByteSize      prometheus.Gauge
	GroupCount    prometheus.Gauge
}

func newStoreMetrics() *StoreMetrics {
	return &StoreMetrics{
		InsertedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "inserted_total",
			Help: "Total number of messages admitted into the store.",
		}),
		DeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "deleted_total",
			Help: "Total number of messages explicitly deleted.",
		}),
		PrunedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "pruned_total",
			Help: "Total number of messages evicted to make room for an admission.",
		}),
		ByteSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "store", Name: "byte_size",
			Help: "Current total byte size held by the store.",
		}),
		GroupCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "store", Name: "group_count",
			Help: "Current number of non-empty priority groups.",
		}),
	}
}

// BackendMetrics holds durable-backend operation latency and error metrics,
// labeled by backend kind (mem/sqlite/redis/postgres) and operation. No
// code in this module calls Registry.Backend or records to them.
type BackendMetrics struct {
	OperationDuration *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
}

func newBackendMetrics() *BackendMetrics {
	return &BackendMetrics{
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "backend", Name: "operation_duration_seconds",
			Help:    "Duration of backend operations in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"backend", "operation"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "backend", Name: "errors_total",
			Help: "Total number of backend operation errors.",
		}, []string{"backend", "operation"}),
	}
}

// HTTPMetrics tracks the transport layer's request counts and latency.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func newHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns the standard Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
