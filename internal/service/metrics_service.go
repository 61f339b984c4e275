package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SiPilip/gathering-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	ledgerOps       *prometheus.CounterVec
	ledgerAmount    prometheus.Counter
	overpayments    prometheus.Counter
	recalcDuration  *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	paymentsRecorded     uint64
	paymentsDeleted      uint64
	recalculations       uint64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "status_cache_latency_seconds",
		Help:    "Latency for status cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "status_cache_write_seconds",
		Help:    "Latency for status cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "status_cache_hit_ratio",
		Help: "Ratio of cache hits to total status lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "status_cache_hits_total",
		Help: "Total status cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "status_cache_misses_total",
		Help: "Total status cache misses",
	})

	ledgerOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger writes by operation",
	}, []string{"operation"})

	ledgerAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_recorded_amount_total",
		Help: "Sum of all recorded payment amounts",
	})

	overpayments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_overpayments_total",
		Help: "Payments that pushed a registration past its fee",
	})

	recalcDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_recalculation_seconds",
		Help:    "Duration of balance recalculations",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, ledgerOps, ledgerAmount, overpayments, recalcDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		ledgerOps:       ledgerOps,
		ledgerAmount:    ledgerAmount,
		overpayments:    overpayments,
		recalcDuration:  recalcDuration,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPayment counts a newly recorded ledger entry.
func (m *MetricsService) RecordPayment(amount int64, overpaid bool) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues("add").Inc()
	m.ledgerAmount.Add(float64(amount))
	if overpaid {
		m.overpayments.Inc()
	}
	atomic.AddUint64(&m.paymentsRecorded, 1)
}

// RecordPaymentDeletion counts a removed ledger entry.
func (m *MetricsService) RecordPaymentDeletion() {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues("delete").Inc()
	atomic.AddUint64(&m.paymentsDeleted, 1)
}

// ObserveRecalculation records the duration and resulting status of a balance recalculation.
func (m *MetricsService) ObserveRecalculation(status models.RegistrationStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.recalcDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
	atomic.AddUint64(&m.recalculations, 1)
}

// Snapshot returns aggregated metrics suitable for the admin dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PaymentsRecorded:         atomic.LoadUint64(&m.paymentsRecorded),
		PaymentsDeleted:          atomic.LoadUint64(&m.paymentsDeleted),
		Recalculations:           atomic.LoadUint64(&m.recalculations),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
