package dto

import "github.com/SiPilip/gathering-api/internal/models"

// AddPaymentRequest is the admin payload for recording a cash payment.
type AddPaymentRequest struct {
	Amount int64 `json:"amount"`
}

// PaymentResult pairs a recorded ledger entry with the recalculated balance.
type PaymentResult struct {
	Payment *models.Payment `json:"payment"`
	Balance *models.Balance `json:"balance"`
}
