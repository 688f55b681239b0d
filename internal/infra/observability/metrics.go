package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/cfo-assistant-go/internal/domain"
)

// Batch outcomes recorded by RecordBatch.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry owns every metric below and backs the /metrics endpoint.
	Registry *prometheus.Registry

	engineDuration    *prometheus.HistogramVec
	upstreamErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	anomaliesDetected *prometheus.CounterVec
	batchItems        *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
}

// NewMetrics creates a dedicated registry so repeated construction in
// tests never collides.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		engineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cfo_engine_duration_seconds",
				Help:    "Duration of analytics operations including upstream fetches.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfo_upstream_errors_total",
				Help: "Failed calls to the accounting provider.",
			},
			[]string{"source"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfo_cache_hits_total",
				Help: "Report cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfo_cache_misses_total",
				Help: "Report cache misses.",
			},
			[]string{"cache"},
		),
		anomaliesDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfo_anomalies_detected_total",
				Help: "Anomalies reported by type.",
			},
			[]string{"type"},
		),
		batchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfo_batch_items_total",
				Help: "Items processed by batch operations.",
			},
			[]string{"operation", "outcome"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfo_http_requests_total",
				Help: "HTTP requests by status code.",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) RecordEngineDuration(operation string, d time.Duration) {
	m.engineDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncrUpstreamError(source string) {
	m.upstreamErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordAnomalies counts anomalies by type.
func (m *Metrics) RecordAnomalies(anomalies []domain.Anomaly) {
	for _, a := range anomalies {
		m.anomaliesDetected.WithLabelValues(string(a.Type)).Inc()
	}
}

// RecordBatch adds a batch tally to the per-outcome counters.
func (m *Metrics) RecordBatch(operation string, res *domain.BatchResult) {
	m.batchItems.WithLabelValues(operation, OutcomeSucceeded).Add(float64(res.Succeeded))
	m.batchItems.WithLabelValues(operation, OutcomeFailed).Add(float64(res.Failed))
	m.batchItems.WithLabelValues(operation, OutcomeSkipped).Add(float64(res.Skipped))
}

func (m *Metrics) IncrRequest(status int) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware counts every request by final status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.IncrRequest(status)
	})
}

// GetEngineSnapshot returns cumulative engine metrics for the
// GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	families, _ := m.Registry.Gather()

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}

	hits := sumCounter(byName["cfo_cache_hits_total"], nil)
	misses := sumCounter(byName["cfo_cache_misses_total"], nil)
	var hitRate float64
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	var total, errs float64
	if f := byName["cfo_http_requests_total"]; f != nil {
		for _, metric := range f.GetMetric() {
			v := metric.GetCounter().GetValue()
			total += v
			if code, err := strconv.Atoi(labelValue(metric, "status")); err == nil && code >= 500 {
				errs += v
			}
		}
	}
	var errorRate float64
	if total > 0 {
		errorRate = errs / total
	}

	anomalies := map[string]float64{}
	if f := byName["cfo_anomalies_detected_total"]; f != nil {
		for _, metric := range f.GetMetric() {
			anomalies[labelValue(metric, "type")] += metric.GetCounter().GetValue()
		}
	}

	return &domain.EngineMetrics{
		UpstreamErrors:     sumCounter(byName["cfo_upstream_errors_total"], nil),
		ReportCacheHitRate: hitRate,
		AnomaliesByType:    anomalies,
		BatchSucceeded:     sumCounter(byName["cfo_batch_items_total"], map[string]string{"outcome": OutcomeSucceeded}),
		BatchFailed:        sumCounter(byName["cfo_batch_items_total"], map[string]string{"outcome": OutcomeFailed}),
		TotalRequests:      int64(total),
		ErrorRate:          errorRate,
		Period:             "all_time",
	}
}

// sumCounter adds up every series of a counter family whose labels match.
func sumCounter(f *dto.MetricFamily, match map[string]string) float64 {
	if f == nil {
		return 0
	}
	var sum float64
next:
	for _, metric := range f.GetMetric() {
		for k, v := range match {
			if labelValue(metric, k) != v {
				continue next
			}
		}
		sum += metric.GetCounter().GetValue()
	}
	return sum
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
