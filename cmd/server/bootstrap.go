package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/internal/handlers"
	"github.com/huangang/taskboard/internal/metrics"
	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/internal/policy"
	"github.com/huangang/taskboard/internal/repository"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/internal/utils"
	"github.com/huangang/taskboard/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   *redis.Client
	repo    *repository.RedisRepository
	metrics *metrics.Metrics

	identity  *services.IdentityService
	activity  *services.ActivityService
	auth      *services.AuthService
	projects  *services.ProjectService
	tasks     *services.TaskService
	dashboard *services.DashboardService
	team      *services.TeamService
	users     *services.UserService

	taskQueue   services.TaskQueue
	worker      *services.Worker
	authLimiter *middleware.RateLimiter
}

func connectIdentityStore(cfg *config.Config) (*gorm.DB, error) {
	if err := models.InitDB(&cfg.Database); err != nil {
		return nil, fmt.Errorf("connect identity store: %w", err)
	}
	return models.GetDB(), nil
}

// seedIdentityStore fills the role table and creates the configured admin
// account when none exists.
func seedIdentityStore(db *gorm.DB, cfg *config.Config) error {
	if err := models.SeedRoles(db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	created, err := models.SeedAdmin(db, &cfg.Admin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info().Str("email", cfg.Admin.Email).Msg("Created default admin user")
	}
	return nil
}

// openIdentityStore connects, migrates and seeds the identity store.
func openIdentityStore(cfg *config.Config) (*gorm.DB, error) {
	db, err := connectIdentityStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate identity store: %w", err)
	}
	if err := seedIdentityStore(db, cfg); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed identity store")
	}
	return db, nil
}

// bootstrap initializes all application dependencies: stores, services, queue and schedulers.
func bootstrap(cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)

	db, err := openIdentityStore(cfg)
	if err != nil {
		return nil, err
	}

	client := repository.NewRedisClient(&cfg.Store)
	repo := repository.NewRedisRepository(client, cfg.Store.KeyPrefix)

	m := metrics.New()
	policy.SetObserver(m)

	hub := services.NewSSEHub()
	identity := services.NewIdentityService(db)
	activity := services.NewActivityService(db, hub, m)
	loader := services.NewSnapshotLoader(repo, m)

	// Uses Redis when the queue is enabled, otherwise jobs run inline
	taskQueue := services.NewTaskQueue(&cfg.Queue, activity.Write)
	activity.SetQueue(taskQueue)

	worker := services.NewWorker(&cfg.Queue, activity.Write)
	if err := worker.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start activity worker")
	}

	if err := activity.StartCleanupScheduler(cfg.Activity.CleanupCron, cfg.Activity.RetentionDays); err != nil {
		logger.Warn().Err(err).Msg("Failed to start activity cleanup scheduler")
	}

	handlers.RegisterRuntimeGauges(m, db, activity)

	return &appServices{
		cfg:         cfg,
		db:          db,
		redis:       client,
		repo:        repo,
		metrics:     m,
		identity:    identity,
		activity:    activity,
		auth:        services.NewAuthService(db, &cfg.JWT, repo, activity),
		projects:    services.NewProjectService(repo, identity, loader, activity, m),
		tasks:       services.NewTaskService(repo, identity, loader, activity, m),
		dashboard:   services.NewDashboardService(identity, loader, m),
		team:        services.NewTeamService(identity, loader, m),
		users:       services.NewUserService(db, identity, activity),
		taskQueue:   taskQueue,
		worker:      worker,
		authLimiter: middleware.NewRateLimiter(5, 10),
	}, nil
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.activity.StopCleanupScheduler()
	s.authLimiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	s.worker.Stop()
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if err := s.redis.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close document store client")
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
