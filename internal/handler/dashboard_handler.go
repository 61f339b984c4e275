package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SiPilip/gathering-api/internal/dto"
	"github.com/SiPilip/gathering-api/internal/middleware"
	"github.com/SiPilip/gathering-api/internal/models"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
	"github.com/SiPilip/gathering-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context) (*dto.DashboardSummary, error)
}

type metricsSnapshotter interface {
	Snapshot() models.SystemMetrics
}

// DashboardHandler wires the admin summary to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	metrics metricsSnapshotter
}

// NewDashboardHandler constructs the handler. metrics may be nil.
func NewDashboardHandler(service dashboardService, metrics metricsSnapshotter) *DashboardHandler {
	return &DashboardHandler{service: service, metrics: metrics}
}

// Summary godoc
// @Summary Admin dashboard summary
// @Description Registrant counts, expected and collected amounts, and per-status breakdown.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		summary.System = &snapshot
	}
	response.JSON(c, http.StatusOK, summary, nil, middleware.ResponseMeta(c))
}
