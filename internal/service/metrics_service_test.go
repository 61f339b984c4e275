package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiPilip/gathering-api/internal/models"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/status/:id", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/status/:id", http.StatusOK, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordPayment(50000, false)
	m.RecordPayment(80000, true)
	m.RecordPaymentDeletion()
	m.ObserveRecalculation(models.StatusFullyPaid, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.PaymentsRecorded)
	assert.Equal(t, uint64(1), snap.PaymentsDeleted)
	assert.Equal(t, uint64(1), snap.Recalculations)
	assert.False(t, snap.GeneratedAt.IsZero())
}

func TestMetricsHandlerExposesLedgerSeries(t *testing.T) {
	m := NewMetricsService()
	m.RecordPayment(100000, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ledger_operations_total{operation="add"} 1`)
	assert.Contains(t, string(body), "ledger_recorded_amount_total 100000")
	assert.Contains(t, string(body), "ledger_overpayments_total 1")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.RecordPayment(1, false)
		m.RecordPaymentDeletion()
		m.ObserveRecalculation(models.StatusPending, time.Millisecond)
	})
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
