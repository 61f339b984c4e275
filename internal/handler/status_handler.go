package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SiPilip/gathering-api/internal/middleware"
	"github.com/SiPilip/gathering-api/internal/models"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
	"github.com/SiPilip/gathering-api/pkg/response"
)

type statusService interface {
	GetStatus(ctx context.Context, registrationID string) (*models.StatusView, bool, error)
}

// StatusHandler serves the public registration status lookup.
type StatusHandler struct {
	service statusService
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(service statusService) *StatusHandler {
	return &StatusHandler{service: service}
}

// Get godoc
// @Summary Check registration status
// @Description Returns the registration and its payments. Results may be served from cache for a few minutes.
// @Tags Status
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /status/{id} [get]
func (h *StatusHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "registration id is required"))
		return
	}
	view, cacheHit, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ResponseMeta(c))
}
