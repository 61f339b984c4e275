package models

import "time"

// Payment is one manually recorded cash payment in a registration's ledger.
type Payment struct {
	ID             string    `db:"id" json:"id"`
	RegistrationID string    `db:"registration_id" json:"registration_id"`
	Amount         int64     `db:"amount" json:"amount"`
	PaymentDate    time.Time `db:"payment_date" json:"payment_date"`
	RecordedBy     *string   `db:"recorded_by" json:"recorded_by,omitempty"`
}

// Balance is the outcome of a ledger recalculation.
type Balance struct {
	RegistrationID string             `json:"registration_id"`
	TotalFee       int64              `json:"total_fee"`
	TotalPaid      int64              `json:"total_paid"`
	Remaining      int64              `json:"remaining"`
	Status         RegistrationStatus `json:"status"`
}

// StatusView is the combined registration and ledger payload served by the
// public status lookup.
type StatusView struct {
	Registration RegistrationDetail `json:"registration"`
	Payments     []Payment          `json:"payments"`
}
