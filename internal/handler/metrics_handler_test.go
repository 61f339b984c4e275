package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiPilip/gathering-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
	})

	c, rec := newTestContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandlerReadyReportsFailingDependency(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	c, rec := newTestContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "connection refused", body.Checks["database"])
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordPayment(40000, false)
	handler := NewMetricsHandler(metrics, nil)

	c, rec := newTestContext(http.MethodGet, "/metrics", nil)

	handler.Prometheus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ledger_operations_total")
}

func TestMetricsHandlerPrometheusDisabled(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)

	c, rec := newTestContext(http.MethodGet, "/metrics", nil)

	handler.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
