package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiPilip/gathering-api/internal/dto"
	"github.com/SiPilip/gathering-api/internal/handler"
	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/internal/service"
	appErrors "github.com/SiPilip/gathering-api/pkg/errors"
	"github.com/SiPilip/gathering-api/pkg/export"
)

const adminToken = "admin-token"

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != adminToken {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, nil
}

type stubAudit struct {
	entries []*models.AuditLog
}

func (s *stubAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

type stubRegistrations struct {
	exported bool
}

func (s *stubRegistrations) Register(_ context.Context, req service.CreateRegistrationRequest, source models.RegistrationSource, _ string) (*models.RegistrationDetail, error) {
	return &models.RegistrationDetail{Registration: models.Registration{ID: "reg-new", Type: req.Type, Source: source}}, nil
}

func (s *stubRegistrations) Get(_ context.Context, id string) (*models.RegistrationDetail, error) {
	return &models.RegistrationDetail{Registration: models.Registration{ID: id}}, nil
}

func (s *stubRegistrations) List(context.Context, models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	return []models.RegistrationDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (s *stubRegistrations) Cancel(_ context.Context, id, _ string) (*models.Registration, error) {
	return &models.Registration{ID: id, Status: models.StatusCancelled}, nil
}

func (s *stubRegistrations) Summary(context.Context) (*dto.DashboardSummary, error) {
	return &dto.DashboardSummary{}, nil
}

func (s *stubRegistrations) Registrations(context.Context, models.RegistrationFilter, export.Format) (*service.ExportResult, error) {
	s.exported = true
	return &service.ExportResult{FileName: "data.csv", ContentType: "text/csv", Payload: []byte("ID\n")}, nil
}

type stubLedger struct{}

func (stubLedger) AddPayment(_ context.Context, registrationID string, amount int64, _ string) (*models.Payment, *models.Balance, error) {
	return &models.Payment{ID: "pay-1", RegistrationID: registrationID, Amount: amount}, &models.Balance{RegistrationID: registrationID, TotalPaid: amount}, nil
}

func (stubLedger) DeletePayment(_ context.Context, _, registrationID string) (*models.Balance, error) {
	return &models.Balance{RegistrationID: registrationID}, nil
}

func (stubLedger) Recalculate(_ context.Context, registrationID string) (*models.Balance, error) {
	return &models.Balance{RegistrationID: registrationID}, nil
}

func (stubLedger) Payments(context.Context, string) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

type stubStatus struct{}

func (stubStatus) GetStatus(_ context.Context, id string) (*models.StatusView, bool, error) {
	return &models.StatusView{Registration: models.RegistrationDetail{Registration: models.Registration{ID: id}}}, true, nil
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: adminToken}, nil
}

func (stubAuth) Me(_ context.Context, id string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: id}, nil
}

func buildTestRouter() (*gin.Engine, *stubRegistrations, *stubAudit) {
	gin.SetMode(gin.TestMode)
	regs := &stubRegistrations{}
	audit := &stubAudit{}
	router := NewRouter(Handlers{
		Auth:          handler.NewAuthHandler(stubAuth{}),
		Registrations: handler.NewRegistrationHandler(regs, stubLedger{}, regs),
		Payments:      handler.NewPaymentHandler(stubLedger{}),
		Status:        handler.NewStatusHandler(stubStatus{}),
		Dashboard:     handler.NewDashboardHandler(regs, nil),
		Ops:           handler.NewMetricsHandler(service.NewMetricsService(), nil),
	}, Options{
		Tokens: stubTokens{},
		Audit:  audit,
	})
	return router, regs, audit
}

func perform(router *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicRoutes(t *testing.T) {
	router, _, _ := buildTestRouter()

	t.Run("health", func(t *testing.T) {
		rec := perform(router, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("status lookup exposes cache flag", func(t *testing.T) {
		rec := perform(router, http.MethodGet, "/api/v1/status/reg-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Meta map[string]interface{} `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body.Meta["cache_hit"])
	})

	t.Run("self registration", func(t *testing.T) {
		rec := perform(router, http.MethodPost, "/api/v1/registrations", "", []byte(`{"type":"INDIVIDUAL","representative_name":"Ani","phone_number":"08123456789"}`))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"registration_source":"SELF"`)
	})
}

func TestRouterAdminRoutesRequireToken(t *testing.T) {
	router, _, _ := buildTestRouter()

	rec := perform(router, http.MethodGet, "/api/v1/admin/registrations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(router, http.MethodGet, "/api/v1/admin/registrations", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = perform(router, http.MethodGet, "/api/v1/admin/registrations", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(router, http.MethodGet, "/api/v1/auth/me", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterExportIsNotShadowedByID(t *testing.T) {
	router, regs, _ := buildTestRouter()

	rec := perform(router, http.MethodGet, "/api/v1/admin/registrations/export?format=csv", adminToken, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, regs.exported)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "data.csv")
}

func TestRouterAuditsLedgerWrites(t *testing.T) {
	router, _, audit := buildTestRouter()

	rec := perform(router, http.MethodPost, "/api/v1/admin/registrations/reg-1/payments", adminToken, []byte(`{"amount":40000}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = perform(router, http.MethodDelete, "/api/v1/admin/registrations/reg-1/payments/pay-1", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, models.AuditActionPaymentCreate, audit.entries[0].Action)
	assert.Equal(t, "pay-1", *audit.entries[0].ResourceID)
	assert.Equal(t, models.AuditActionPaymentDelete, audit.entries[1].Action)
	assert.Equal(t, "pay-1", *audit.entries[1].ResourceID)
	assert.Equal(t, "admin-1", *audit.entries[1].UserID)
}
