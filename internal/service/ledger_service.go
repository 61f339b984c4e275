package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SiPilip/gathering-api/internal/models"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
)

type ledgerRegistrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Registration, error)
	UpdateBalance(ctx context.Context, id string, totalPaid int64, status models.RegistrationStatus) error
}

type ledgerPaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id, registrationID string) error
	ListByRegistration(ctx context.Context, registrationID string) ([]models.Payment, error)
}

// Transactor runs fn inside a single store transaction carried by ctx.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerService records and removes cash payments and keeps each
// registration's paid total and status in step with its ledger.
type LedgerService struct {
	registrations ledgerRegistrationRepository
	payments      ledgerPaymentRepository
	tx            Transactor
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(registrations ledgerRegistrationRepository, payments ledgerPaymentRepository, tx Transactor, metrics *MetricsService, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		registrations: registrations,
		payments:      payments,
		tx:            tx,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// AddPayment appends a ledger entry and recalculates the registration balance
// in the same transaction. Overpayment is accepted and logged.
func (s *LedgerService) AddPayment(ctx context.Context, registrationID string, amount int64, recordedBy string) (*models.Payment, *models.Balance, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "registration id is required")
	}
	if amount <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	var (
		payment *models.Payment
		balance *models.Balance
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.Cancelled() {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "registration is cancelled")
		}

		entry := &models.Payment{
			RegistrationID: registrationID,
			Amount:         amount,
			PaymentDate:    s.now().UTC(),
		}
		if actor := strings.TrimSpace(recordedBy); actor != "" {
			entry.RecordedBy = &actor
		}
		if err := s.payments.Create(ctx, entry); err != nil {
			return appErrors.Store(err, "failed to record payment")
		}
		payment = entry

		balance, err = s.recalculate(ctx, reg)
		return err
	})
	if err != nil {
		return nil, nil, storeError(err, "failed to record payment")
	}

	overpaid := balance.TotalPaid > balance.TotalFee
	if overpaid {
		s.logger.Warn("registration overpaid",
			zap.String("registration_id", registrationID),
			zap.Int64("total_fee", balance.TotalFee),
			zap.Int64("total_paid", balance.TotalPaid),
		)
	}
	s.metrics.RecordPayment(amount, overpaid)
	s.logger.Info("payment recorded",
		zap.String("registration_id", registrationID),
		zap.String("payment_id", payment.ID),
		zap.Int64("amount", amount),
		zap.String("status", string(balance.Status)),
	)
	return payment, balance, nil
}

// DeletePayment removes a ledger entry belonging to the registration and
// recalculates the balance from the remaining entries.
func (s *LedgerService) DeletePayment(ctx context.Context, paymentID, registrationID string) (*models.Balance, error) {
	paymentID = strings.TrimSpace(paymentID)
	registrationID = strings.TrimSpace(registrationID)
	if paymentID == "" || registrationID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment id and registration id are required")
	}

	var balance *models.Balance
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		if err := s.payments.Delete(ctx, paymentID, registrationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
			}
			return appErrors.Store(err, "failed to delete payment")
		}
		balance, err = s.recalculate(ctx, reg)
		return err
	})
	if err != nil {
		return nil, storeError(err, "failed to delete payment")
	}

	s.metrics.RecordPaymentDeletion()
	s.logger.Info("payment deleted",
		zap.String("registration_id", registrationID),
		zap.String("payment_id", paymentID),
		zap.String("status", string(balance.Status)),
	)
	return balance, nil
}

// Recalculate rebuilds total_paid and status from the full ledger. It is
// idempotent and never moves a cancelled registration out of CANCELLED.
func (s *LedgerService) Recalculate(ctx context.Context, registrationID string) (*models.Balance, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration id is required")
	}

	var balance *models.Balance
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		balance, err = s.recalculate(ctx, reg)
		return err
	})
	if err != nil {
		return nil, storeError(err, "failed to recalculate balance")
	}
	return balance, nil
}

// Payments returns the ledger of an existing registration, newest first.
func (s *LedgerService) Payments(ctx context.Context, registrationID string) ([]models.Payment, error) {
	if _, err := s.registrations.FindByID(ctx, registrationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	payments, err := s.payments.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list payments")
	}
	return payments, nil
}

func (s *LedgerService) lockRegistration(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.registrations.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	return reg, nil
}

// recalculate is the only writer of total_paid. reg must already be locked by
// the surrounding transaction.
func (s *LedgerService) recalculate(ctx context.Context, reg *models.Registration) (*models.Balance, error) {
	start := time.Now()
	entries, err := s.payments.ListByRegistration(ctx, reg.ID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to read ledger")
	}

	var totalPaid int64
	for _, entry := range entries {
		totalPaid += entry.Amount
	}
	status := ResolveStatus(reg.Cancelled(), reg.TotalFee, totalPaid)

	if err := s.registrations.UpdateBalance(ctx, reg.ID, totalPaid, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to update registration balance")
	}
	s.metrics.ObserveRecalculation(status, time.Since(start))

	return &models.Balance{
		RegistrationID: reg.ID,
		TotalFee:       reg.TotalFee,
		TotalPaid:      totalPaid,
		Remaining:      remaining(reg.TotalFee, totalPaid),
		Status:         status,
	}, nil
}

// storeError keeps typed errors intact and wraps anything else, such as a
// failed commit, as a StoreError.
func storeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Store(err, message)
}
