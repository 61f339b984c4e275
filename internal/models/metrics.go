package models

import "time"

// SystemMetrics is a point-in-time summary of request, cache and ledger instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PaymentsRecorded         uint64    `json:"payments_recorded"`
	PaymentsDeleted          uint64    `json:"payments_deleted"`
	Recalculations           uint64    `json:"recalculations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
