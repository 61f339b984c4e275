package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SiPilip/gathering-api/internal/models"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
)

const statusCacheKeyPrefix = "status:"

type statusRegistrationRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
}

type statusPaymentRepository interface {
	ListByRegistration(ctx context.Context, registrationID string) ([]models.Payment, error)
}

// StatusService serves the public status lookup through a read-through cache.
// Entries expire on their TTL only; ledger writes do not invalidate them.
type StatusService struct {
	registrations statusRegistrationRepository
	payments      statusPaymentRepository
	cache         *CacheService
	logger        *zap.Logger
}

// NewStatusService constructs a StatusService.
func NewStatusService(registrations statusRegistrationRepository, payments statusPaymentRepository, cache *CacheService, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{registrations: registrations, payments: payments, cache: cache, logger: logger}
}

// StatusCacheKey returns the cache key of a registration's status view.
func StatusCacheKey(registrationID string) string {
	return statusCacheKeyPrefix + registrationID
}

// GetStatus returns the registration with its ledger. The boolean reports
// whether the view came from cache.
func (s *StatusService) GetStatus(ctx context.Context, registrationID string) (*models.StatusView, bool, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "registration id is required")
	}

	key := StatusCacheKey(registrationID)
	var cached models.StatusView
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	view, err := s.load(ctx, registrationID)
	if err != nil {
		return nil, false, err
	}

	s.cache.Set(ctx, key, view, s.cache.TTL())
	return view, false, nil
}

func (s *StatusService) load(ctx context.Context, registrationID string) (*models.StatusView, error) {
	var (
		detail   *models.RegistrationDetail
		payments []models.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = s.registrations.FindDetailByID(gctx, registrationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
			}
			return appErrors.Store(err, "failed to load registration")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payments, err = s.payments.ListByRegistration(gctx, registrationID)
		if err != nil {
			return appErrors.Store(err, "failed to load payments")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			s.logger.Error("status lookup failed", zap.String("registration_id", registrationID), zap.Error(err))
		}
		return nil, err
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return &models.StatusView{Registration: *detail, Payments: payments}, nil
}
