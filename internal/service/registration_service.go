package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SiPilip/gathering-api/internal/dto"
	"github.com/SiPilip/gathering-api/internal/models"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
)

type registrationRepository interface {
	Create(ctx context.Context, detail *models.RegistrationDetail) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)
	Totals(ctx context.Context) (*models.RegistrationTotals, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

type paymentRecorder interface {
	AddPayment(ctx context.Context, registrationID string, amount int64, recordedBy string) (*models.Payment, *models.Balance, error)
}

// FamilyMemberRequest describes one additional attendee of a family registration.
type FamilyMemberRequest struct {
	Name        string             `json:"name" validate:"required,max=120"`
	AgeCategory models.AgeCategory `json:"age_category" validate:"required,oneof=ADULT YOUTH CHILD"`
}

// CreateRegistrationRequest holds the registration form payload.
type CreateRegistrationRequest struct {
	Type               models.RegistrationType `json:"type" validate:"required,oneof=INDIVIDUAL FAMILY"`
	RepresentativeName string                  `json:"representative_name" validate:"required,max=120"`
	PhoneNumber        string                  `json:"phone_number" validate:"required,min=8,max=20"`
	AgeCategory        models.AgeCategory      `json:"age_category" validate:"omitempty,oneof=ADULT YOUTH CHILD"`
	FamilyMembers      []FamilyMemberRequest   `json:"family_members" validate:"max=20,dive"`
	InitialPayment     int64                   `json:"initial_payment" validate:"gte=0"`
}

// RegistrationServiceConfig tunes registration pricing.
type RegistrationServiceConfig struct {
	UnitPrice int64
}

// RegistrationService handles registration use-cases.
type RegistrationService struct {
	repo      registrationRepository
	ledger    paymentRecorder
	tx        Transactor
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RegistrationServiceConfig
	now       func() time.Time
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(repo registrationRepository, ledger paymentRecorder, tx Transactor, validate *validator.Validate, logger *zap.Logger, cfg RegistrationServiceConfig) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UnitPrice <= 0 {
		cfg.UnitPrice = 100000
	}
	return &RegistrationService{repo: repo, ledger: ledger, tx: tx, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Fee returns the registration fee for a representative plus memberCount attendees.
func (s *RegistrationService) Fee(memberCount int) int64 {
	return int64(1+memberCount) * s.cfg.UnitPrice
}

// Register creates a registration. Only admin entries may carry an initial
// payment, which is recorded through the ledger in the same transaction.
func (s *RegistrationService) Register(ctx context.Context, req CreateRegistrationRequest, source models.RegistrationSource, actorID string) (*models.RegistrationDetail, error) {
	req.RepresentativeName = strings.TrimSpace(req.RepresentativeName)
	req.PhoneNumber = normalizePhone(req.PhoneNumber)
	for i := range req.FamilyMembers {
		req.FamilyMembers[i].Name = strings.TrimSpace(req.FamilyMembers[i].Name)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	switch req.Type {
	case models.RegistrationTypeIndividual:
		if len(req.FamilyMembers) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "individual registrations cannot include family members")
		}
	case models.RegistrationTypeFamily:
		if len(req.FamilyMembers) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "family registrations need at least one family member")
		}
	}
	if source != models.RegistrationSourceAdmin && req.InitialPayment > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "initial payment can only be recorded by an admin")
	}

	ageCategory := req.AgeCategory
	if ageCategory == "" {
		ageCategory = models.AgeCategoryAdult
	}
	now := s.now().UTC()
	detail := &models.RegistrationDetail{
		Registration: models.Registration{
			Type:               req.Type,
			RepresentativeName: req.RepresentativeName,
			PhoneNumber:        req.PhoneNumber,
			AgeCategory:        ageCategory,
			TotalFee:           s.Fee(len(req.FamilyMembers)),
			TotalPaid:          0,
			Status:             models.StatusPending,
			Source:             source,
			CreatedAt:          now,
		},
		FamilyMembers: make([]models.FamilyMember, 0, len(req.FamilyMembers)),
	}
	for _, member := range req.FamilyMembers {
		detail.FamilyMembers = append(detail.FamilyMembers, models.FamilyMember{
			MemberName:  member.Name,
			AgeCategory: member.AgeCategory,
			CreatedAt:   now,
		})
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, detail); err != nil {
			return appErrors.Store(err, "failed to create registration")
		}
		if req.InitialPayment <= 0 {
			return nil
		}
		_, balance, err := s.ledger.AddPayment(ctx, detail.ID, req.InitialPayment, actorID)
		if err != nil {
			return err
		}
		detail.TotalPaid = balance.TotalPaid
		detail.Status = balance.Status
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to create registration")
	}

	s.logger.Info("registration created",
		zap.String("registration_id", detail.ID),
		zap.String("type", string(detail.Type)),
		zap.String("source", string(source)),
		zap.Int64("total_fee", detail.TotalFee),
	)
	return detail, nil
}

// Get returns a registration with its family members.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	return detail, nil
}

// List returns registrations and pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	if filter.Type != "" && filter.Type != models.RegistrationTypeIndividual && filter.Type != models.RegistrationTypeFamily {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid type filter")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list registrations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Cancel moves a registration into the terminal CANCELLED state.
func (s *RegistrationService) Cancel(ctx context.Context, id, actorID string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	if reg.Cancelled() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "registration already cancelled")
	}

	at := s.now().UTC()
	changed, err := s.repo.Cancel(ctx, id, at)
	if err != nil {
		return nil, appErrors.Store(err, "failed to cancel registration")
	}
	if !changed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "registration already cancelled")
	}

	reg.Status = models.StatusCancelled
	reg.CancelledAt = &at
	reg.UpdatedAt = at
	s.logger.Info("registration cancelled", zap.String("registration_id", id), zap.String("actor_id", actorID))
	return reg, nil
}

// Summary aggregates money and status figures for the admin dashboard.
func (s *RegistrationService) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	var (
		totals *models.RegistrationTotals
		counts []models.StatusCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.repo.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Store(err, "failed to summarise registrations")
	}

	byStatus := map[models.RegistrationStatus]int{}
	for _, count := range counts {
		byStatus[count.Status] = count.Count
	}
	breakdown := make([]dto.StatusBreakdown, 0, 4)
	for _, status := range []models.RegistrationStatus{models.StatusPending, models.StatusPartialPaid, models.StatusFullyPaid, models.StatusCancelled} {
		breakdown = append(breakdown, dto.StatusBreakdown{Status: status, Count: byStatus[status]})
	}

	unpaid := totals.TotalExpected - totals.TotalCollected
	if unpaid < 0 {
		unpaid = 0
	}
	return &dto.DashboardSummary{
		TotalRegistrants: totals.TotalRegistrants,
		TotalExpected:    totals.TotalExpected,
		TotalCollected:   totals.TotalCollected,
		TotalUnpaid:      unpaid,
		ByStatus:         breakdown,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r == ' ' || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
