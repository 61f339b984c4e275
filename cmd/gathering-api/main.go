package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/SiPilip/gathering-api/api/swagger"
	"github.com/SiPilip/gathering-api/internal/handler"
	"github.com/SiPilip/gathering-api/internal/repository"
	"github.com/SiPilip/gathering-api/internal/server"
	"github.com/SiPilip/gathering-api/internal/service"
	"github.com/SiPilip/gathering-api/pkg/cache"
	"github.com/SiPilip/gathering-api/pkg/config"
	"github.com/SiPilip/gathering-api/pkg/database"
	"github.com/SiPilip/gathering-api/pkg/export"
	"github.com/SiPilip/gathering-api/pkg/logger"
)

// @title Gathering Registration API
// @version 1.0.0
// @description Registration and cash payment tracking for a single gathering event
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type cacheBackend interface {
	service.CacheRepository
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var backend cacheBackend = repository.NopCacheRepository{}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logr.Warn("redis unavailable, status cache disabled", zap.Error(err))
	case redisClient != nil:
		backend = repository.NewCacheRepository(redisClient, logr)
		logr.Info("status cache enabled", zap.String("host", cfg.Redis.Host), zap.Duration("ttl", cfg.Event.StatusCacheTTL))
	default:
		logr.Info("status cache disabled")
	}
	defer backend.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()
	transactor := database.NewTransactor(db)

	registrationRepo := repository.NewRegistrationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	ledgerService := service.NewLedgerService(registrationRepo, paymentRepo, transactor, metrics, logr)
	registrationService := service.NewRegistrationService(registrationRepo, ledgerService, transactor, validate, logr, service.RegistrationServiceConfig{
		UnitPrice: cfg.Event.UnitPrice,
	})
	cacheService := service.NewCacheService(backend, metrics, cfg.Event.StatusCacheTTL, logr)
	statusService := service.NewStatusService(registrationRepo, paymentRepo, cacheService, logr)
	exportService := service.NewExportService(registrationRepo, service.ExportConfig{
		Title:    cfg.Exports.Title,
		Location: loadLocation(cfg.Exports.Timezone, logr),
	}, logr, export.NewCSVExporter(export.WithUTF8BOM()), export.NewPDFExporter(service.RegistrationPDFOptions()...))

	router := server.NewRouter(server.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Registrations: handler.NewRegistrationHandler(registrationService, ledgerService, exportService),
		Payments:      handler.NewPaymentHandler(ledgerService),
		Status:        handler.NewStatusHandler(statusService),
		Dashboard:     handler.NewDashboardHandler(registrationService, metrics),
		Ops: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": db,
		}),
	}, server.Options{
		APIPrefix:      cfg.APIPrefix,
		EnableDocs:     cfg.Env != config.EnvProduction,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authService,
		Audit:          userRepo,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func loadLocation(name string, logr *zap.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logr.Warn("unknown export timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
