package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/SiPilip/gathering-api/internal/handler"
	"github.com/SiPilip/gathering-api/internal/middleware"
	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/internal/service"
	"github.com/SiPilip/gathering-api/pkg/logger"
	corsmiddleware "github.com/SiPilip/gathering-api/pkg/middleware/cors"
	reqidmiddleware "github.com/SiPilip/gathering-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Registrations *handler.RegistrationHandler
	Payments      *handler.PaymentHandler
	Status        *handler.StatusHandler
	Dashboard     *handler.DashboardHandler
	Ops           *handler.MetricsHandler
}

// Options configures cross-cutting router behaviour.
type Options struct {
	APIPrefix      string
	EnableDocs     bool
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
}

// NewRouter mounts public, admin and operational routes.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	r.GET("/metrics", h.Ops.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	api.POST("/registrations", h.Registrations.Register)
	api.GET("/status/:id", h.Status.Get)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens), middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	secured.GET("/auth/me", h.Auth.Me)

	audit := func(action, resource, param string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, log, action, resource, param)
	}

	admin := secured.Group("/admin")
	admin.GET("/dashboard", h.Dashboard.Summary)

	registrations := admin.Group("/registrations")
	registrations.GET("", h.Registrations.List)
	registrations.POST("", audit(models.AuditActionRegistrationCreate, "registration", ""), h.Registrations.Create)
	registrations.GET("/export", h.Registrations.Export)
	registrations.GET("/:id", h.Registrations.Get)
	registrations.POST("/:id/cancel", audit(models.AuditActionRegistrationCancel, "registration", "id"), h.Registrations.Cancel)
	registrations.GET("/:id/payments", h.Payments.List)
	registrations.POST("/:id/payments", audit(models.AuditActionPaymentCreate, "payment", "id"), h.Payments.Add)
	registrations.DELETE("/:id/payments/:paymentId", audit(models.AuditActionPaymentDelete, "payment", "paymentId"), h.Payments.Delete)
	registrations.POST("/:id/recalculate", audit(models.AuditActionRecalculate, "registration", "id"), h.Payments.Recalculate)

	return r
}
