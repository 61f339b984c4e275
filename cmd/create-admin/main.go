package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/internal/repository"
	"github.com/SiPilip/gathering-api/internal/service"
	"github.com/SiPilip/gathering-api/pkg/config"
	"github.com/SiPilip/gathering-api/pkg/database"
	"github.com/SiPilip/gathering-api/pkg/logger"
)

func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	name := flag.String("name", "Administrator", "display name")
	role := flag.String("role", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || *password == "" {
		log.Fatal("email and password are required")
	}
	userRole := models.UserRole(strings.ToUpper(*role))
	if userRole != models.RoleAdmin && userRole != models.RoleSuperAdmin {
		log.Fatalf("unsupported role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	hash, err := service.HashPassword(*password)
	if err != nil {
		logr.Fatal("failed to hash password", zap.Error(err))
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: hash,
		FullName:     *name,
		Role:         userRole,
		Active:       true,
	}
	if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
		logr.Fatal("failed to create admin", zap.Error(err))
	}
	logr.Info("admin created", zap.String("id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
}
