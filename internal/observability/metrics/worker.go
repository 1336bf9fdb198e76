package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	importTotal    *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	importInFlight prometheus.Gauge
	recordsLoaded  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	importTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "catalog_import_total",
			Help:      "Total processed catalog imports by status.",
		},
		[]string{"service", "status"},
	)
	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "catalog_import_duration_seconds",
			Help:      "Catalog import duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	importInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "catalog_import_in_flight",
			Help:      "Number of in-flight catalog imports.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recordsLoaded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "worker",
			Name:      "catalog_records_loaded_total",
			Help:      "Total product records upserted from catalog imports.",
		},
		[]string{"service"},
	)

	registry.MustRegister(importTotal, importDuration, importInFlight, recordsLoaded)

	return &WorkerMetrics{
		registry:       registry,
		importTotal:    importTotal,
		importDuration: importDuration,
		importInFlight: importInFlight,
		recordsLoaded:  recordsLoaded,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartImport() {
	m.importInFlight.Inc()
}

func (m *WorkerMetrics) FinishImport(service string, duration time.Duration, err error) {
	m.importInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.importTotal.WithLabelValues(service, status).Inc()
	m.importDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddRecordsLoaded(service string, n int) {
	if n <= 0 {
		return
	}
	m.recordsLoaded.WithLabelValues(service).Add(float64(n))
}
