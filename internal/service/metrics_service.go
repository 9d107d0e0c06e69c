package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are nil-safe
// so services can run without metrics.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	storageErrors    *prometheus.CounterVec
	storageLatency   *prometheus.HistogramVec
	retentionRemoved prometheus.Counter
	overall          prometheus.Gauge
	subjects         prometheus.Gauge
	events           prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
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

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_mutations_total",
		Help: "Persisted snapshot mutations by topic and action",
	}, []string{"topic", "action"})

	storageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_storage_errors_total",
		Help: "Failed storage operations by operation and topic",
	}, []string{"op", "topic"})

	storageLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendance_storage_seconds",
		Help:    "Latency of snapshot reads and writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "topic"})

	retentionRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_retention_removed_total",
		Help: "Completed calendar events removed by the retention sweep",
	})

	overall := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_overall_percentage",
		Help: "Weighted attendance percentage across all subjects",
	})

	subjects := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_subjects",
		Help: "Number of tracked subjects",
	})

	events := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calendar_events",
		Help: "Number of stored calendar events",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, mutations, storageErrors, storageLatency, retentionRemoved, overall, subjects, events, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		mutations:        mutations,
		storageErrors:    storageErrors,
		storageLatency:   storageLatency,
		retentionRemoved: retentionRemoved,
		overall:          overall,
		subjects:         subjects,
		events:           events,
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

// Registry returns the underlying registry (tests gather from it).
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordMutation counts a persisted mutation.
func (m *MetricsService) RecordMutation(topic, action string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(topic, action).Inc()
}

// ObserveStorage records the latency of a storage call and counts failures.
func (m *MetricsService) ObserveStorage(op, topic string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.storageLatency.WithLabelValues(op, topic).Observe(duration.Seconds())
	if err != nil {
		m.storageErrors.WithLabelValues(op, topic).Inc()
	}
}

// RecordRetention adds removed to the retention counter.
func (m *MetricsService) RecordRetention(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.retentionRemoved.Add(float64(removed))
}

// SetSubjectStats publishes the current subject count and overall percentage.
func (m *MetricsService) SetSubjectStats(count int, overall float64) {
	if m == nil {
		return
	}
	m.subjects.Set(float64(count))
	m.overall.Set(overall)
}

// SetEventCount publishes the number of stored calendar events.
func (m *MetricsService) SetEventCount(count int) {
	if m == nil {
		return
	}
	m.events.Set(float64(count))
}
