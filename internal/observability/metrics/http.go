package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	evidenceCount      *prometheus.HistogramVec
	partialRetrievals  *prometheus.CounterVec
	rerankerDegraded   *prometheus.CounterVec
	answersRejected    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Total completed query resolutions by intent and final state.",
		},
		[]string{"service", "intent", "state"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "resolution_duration_seconds",
			Help:      "Query resolution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	evidenceCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "evidence_candidates",
			Help:      "Distribution of ranked evidence candidates per resolution.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "intent"},
	)
	partialRetrievals := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "partial_retrieval_total",
			Help:      "Total resolutions answered from a partial evidence set.",
		},
		[]string{"service"},
	)
	rerankerDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "reranker_degraded_total",
			Help:      "Total resolutions where reranking fell back to fused order.",
		},
		[]string{"service"},
	)
	answersRejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "pipeline",
			Name:      "answers_rejected_total",
			Help:      "Total resolutions whose final answer stayed rejected after retry.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		resolutionsTotal,
		resolutionDuration,
		evidenceCount,
		partialRetrievals,
		rerankerDegraded,
		answersRejected,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		resolutionsTotal:   resolutionsTotal,
		resolutionDuration: resolutionDuration,
		evidenceCount:      evidenceCount,
		partialRetrievals:  partialRetrievals,
		rerankerDegraded:   rerankerDegraded,
		answersRejected:    answersRejected,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/products/"):
		return "/v1/products/{product_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordResolution(service, intent, state string, evidence int, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	if state == "" {
		state = "unknown"
	}
	m.resolutionsTotal.WithLabelValues(service, intent, state).Inc()
	m.resolutionDuration.WithLabelValues(service, intent).Observe(duration.Seconds())
	m.evidenceCount.WithLabelValues(service, intent).Observe(float64(evidence))
}

func (m *HTTPServerMetrics) RecordPartialRetrieval(service string) {
	m.partialRetrievals.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRerankerDegraded(service string) {
	m.rerankerDegraded.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAnswerRejected(service string) {
	m.answersRejected.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
