package main

import (
	"context"
	"fmt"

	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/internal/handlers"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/internal/store"
	"github.com/huangang/taskmanager/internal/utils"
	"github.com/huangang/taskmanager/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@taskmanager.com"
	defaultAdminPassword = "admin123"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg *config.Config
	db  *gorm.DB

	authService    *services.AuthService
	auditService   *services.AuditLogService
	maintenance    *services.MaintenanceService
	taskQueue      services.TaskQueue
	worker         *services.Worker
	scheduler      *services.MaintenanceScheduler
	authLimiter    *middleware.RateLimiter
	authHandler    *handlers.AuthHandler
	taskHandler    *handlers.TaskHandler
	commentHandler *handlers.CommentHandler
	adminHandler   *handlers.AdminHandler
	protected      *handlers.ProtectedHandler
	healthHandler  *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) (*appServices, error) {
	db, err := models.OpenDB(&cfg.Database, cfg.Log.Level == "debug")
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	svc := wire(cfg, db)

	created, err := svc.authService.EnsureAdmin(context.Background(), defaultAdminEmail, defaultAdminPassword)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	} else if created {
		logger.Warn().Str("email", defaultAdminEmail).Msg("Default admin user created, change its password")
	}

	if err := svc.start(); err != nil {
		svc.shutdown()
		return nil, err
	}
	return svc, nil
}

// wire constructs services and handlers on top of an opened database.
// Nothing is started.
func wire(cfg *config.Config, db *gorm.DB) *appServices {
	credentials := store.NewGormStore(db)
	codec := utils.NewTokenCodec(cfg.JWT)
	hasher := utils.BcryptHasher{}

	authService := services.NewAuthService(credentials, codec, services.WithPasswordHasher(hasher))
	auditService := services.NewAuditLogService(db)
	userService := services.NewUserService(credentials, hasher, authService)
	maintenance := services.NewMaintenanceService(authService, auditService)
	taskQueue := services.NewTaskQueue(&cfg.Redis, maintenance.Process)

	return &appServices{
		cfg:            cfg,
		db:             db,
		authService:    authService,
		auditService:   auditService,
		maintenance:    maintenance,
		taskQueue:      taskQueue,
		scheduler:      services.NewMaintenanceScheduler(cfg.Maintenance, taskQueue),
		authLimiter:    middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst),
		authHandler:    handlers.NewAuthHandler(authService, codec.RefreshTTL(), cfg.Server.IsRelease()),
		taskHandler:    handlers.NewTaskHandler(services.NewTaskService(db)),
		commentHandler: handlers.NewCommentHandler(services.NewCommentService(db)),
		adminHandler:   handlers.NewAdminHandler(userService, auditService),
		protected:      handlers.NewProtectedHandler(),
		healthHandler:  handlers.NewHealthHandler(db, taskQueue),
	}
}

// start launches the background worker and the maintenance scheduler.
func (s *appServices) start() error {
	if s.taskQueue.IsAsync() {
		s.worker = services.NewWorker(&s.cfg.Redis, s.maintenance.Process)
		if s.worker != nil {
			if err := s.worker.Start(); err != nil {
				return err
			}
		}
	}
	return s.scheduler.Start()
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	s.authLimiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
