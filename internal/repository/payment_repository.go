package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/pkg/database"
)

// PaymentRepository persists ledger entries.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create appends a payment entry to the ledger.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, registration_id, amount, payment_date, recorded_by)
        VALUES (:id, :registration_id, :amount, :payment_date, :recorded_by)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID returns a payment entry by its ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, registration_id, amount, payment_date, recorded_by FROM payments WHERE id = $1`
	var payment models.Payment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// Delete permanently removes a payment belonging to the registration. It
// returns sql.ErrNoRows when nothing matched.
func (r *PaymentRepository) Delete(ctx context.Context, id, registrationID string) error {
	const query = `DELETE FROM payments WHERE id = $1 AND registration_id = $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, registrationID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByRegistration returns the full ledger of a registration, newest first.
func (r *PaymentRepository) ListByRegistration(ctx context.Context, registrationID string) ([]models.Payment, error) {
	const query = `SELECT id, registration_id, amount, payment_date, recorded_by FROM payments WHERE registration_id = $1 ORDER BY payment_date DESC, id`
	payments := []models.Payment{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &payments, query, registrationID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
