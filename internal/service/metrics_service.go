package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the storage backend adapter.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	blobOpDuration  *prometheus.HistogramVec
	blobOpErrors    *prometheus.CounterVec
	uploadedBytes   prometheus.Counter
	integrityAlerts prometheus.Counter
	auditDropped    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	blobOpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blob_operation_duration_seconds",
		Help:    "Duration of object storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	blobOpErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blob_operation_errors_total",
		Help: "Object storage operations that failed after retries",
	}, []string{"operation"})

	uploadedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evidence_uploaded_bytes_total",
		Help: "Total bytes of evidence accepted",
	})

	integrityAlerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evidence_integrity_violations_total",
		Help: "Digest mismatches detected on read",
	})

	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit events dropped because the dispatch queue was full",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, blobOpDuration, blobOpErrors,
		uploadedBytes, integrityAlerts, auditDropped, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		blobOpDuration:  blobOpDuration,
		blobOpErrors:    blobOpErrors,
		uploadedBytes:   uploadedBytes,
		integrityAlerts: integrityAlerts,
		auditDropped:    auditDropped,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBlobOp records one storage backend call.
func (m *MetricsService) ObserveBlobOp(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.blobOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.blobOpErrors.WithLabelValues(operation).Inc()
	}
}

// AddUploadedBytes accumulates accepted payload volume.
func (m *MetricsService) AddUploadedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadedBytes.Add(float64(n))
}

// RecordIntegrityViolation counts a digest mismatch.
func (m *MetricsService) RecordIntegrityViolation() {
	if m == nil {
		return
	}
	m.integrityAlerts.Inc()
}

// RecordAuditDrop counts an audit event lost to queue pressure.
func (m *MetricsService) RecordAuditDrop() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
