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

type ledgerService interface {
	AddPayment(ctx context.Context, registrationID string, amount int64, recordedBy string) (*models.Payment, *models.Balance, error)
	DeletePayment(ctx context.Context, paymentID, registrationID string) (*models.Balance, error)
	Recalculate(ctx context.Context, registrationID string) (*models.Balance, error)
	Payments(ctx context.Context, registrationID string) ([]models.Payment, error)
}

// PaymentHandler exposes the payment ledger of a registration to admins.
type PaymentHandler struct {
	ledger ledgerService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(ledger ledgerService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// List godoc
// @Summary List payments of a registration
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/{id}/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	payments, err := h.ledger.Payments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Add godoc
// @Summary Record a cash payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param payload body dto.AddPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/registrations/{id}/payments [post]
func (h *PaymentHandler) Add(c *gin.Context) {
	var req dto.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	payment, balance, err := h.ledger.AddPayment(c.Request.Context(), c.Param("id"), req.Amount, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, payment.ID)
	response.Created(c, dto.PaymentResult{Payment: payment, Balance: balance})
}

// Delete godoc
// @Summary Delete a payment entry
// @Description Removes a mistaken ledger entry and recalculates the balance.
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param paymentId path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id}/payments/{paymentId} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	balance, err := h.ledger.DeletePayment(c.Request.Context(), c.Param("paymentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Recalculate godoc
// @Summary Recalculate a registration balance
// @Description Re-derives total paid and status from the full ledger.
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id}/recalculate [post]
func (h *PaymentHandler) Recalculate(c *gin.Context) {
	balance, err := h.ledger.Recalculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}
