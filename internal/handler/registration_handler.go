package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SiPilip/gathering-api/internal/middleware"
	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/internal/service"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
	"github.com/SiPilip/gathering-api/pkg/export"
	"github.com/SiPilip/gathering-api/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, req service.CreateRegistrationRequest, source models.RegistrationSource, actorID string) (*models.RegistrationDetail, error)
	Get(ctx context.Context, id string) (*models.RegistrationDetail, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error)
	Cancel(ctx context.Context, id, actorID string) (*models.Registration, error)
}

type paymentLister interface {
	Payments(ctx context.Context, registrationID string) ([]models.Payment, error)
}

type registrationExporter interface {
	Registrations(ctx context.Context, filter models.RegistrationFilter, format export.Format) (*service.ExportResult, error)
}

// RegistrationHandler exposes the registration form and the admin registration panel.
type RegistrationHandler struct {
	registrations registrationService
	payments      paymentLister
	exports       registrationExporter
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations registrationService, payments paymentLister, exports registrationExporter) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, payments: payments, exports: exports}
}

// Register godoc
// @Summary Submit a registration
// @Description Public registration form. Initial payments are rejected here.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body service.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	h.create(c, models.RegistrationSourceSelf)
}

// Create godoc
// @Summary Enter a registration as admin
// @Description Admin entry with an optional initial cash payment.
// @Tags Admin Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	h.create(c, models.RegistrationSourceAdmin)
}

func (h *RegistrationHandler) create(c *gin.Context, source models.RegistrationSource) {
	var req service.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	detail, err := h.registrations.Register(c.Request.Context(), req, source, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, detail.ID)
	response.Created(c, detail)
}

// List godoc
// @Summary List registrations
// @Tags Admin Registrations
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search by representative, phone or family member name"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by registration type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	filter := registrationFilterFromQuery(c)
	items, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get registration detail with its payment ledger
// @Tags Admin Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	detail, err := h.registrations.Get(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	payments, err := h.payments.Payments(ctx, detail.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.StatusView{Registration: *detail, Payments: payments}, nil)
}

// Cancel godoc
// @Summary Cancel a registration
// @Tags Admin Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/registrations/{id}/cancel [post]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	reg, err := h.registrations.Cancel(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Export godoc
// @Summary Export registrations
// @Tags Admin Registrations
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param q query string false "Search"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by registration type"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/registrations/export [get]
func (h *RegistrationHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	filter := registrationFilterFromQuery(c)
	result, err := h.exports.Registrations(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.FileName, result.ContentType, result.Payload)
}

func registrationFilterFromQuery(c *gin.Context) models.RegistrationFilter {
	var filter models.RegistrationFilter
	filter.Search = strings.TrimSpace(c.Query("q"))
	filter.Status = models.RegistrationStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	filter.Type = models.RegistrationType(strings.ToUpper(strings.TrimSpace(c.Query("type"))))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
