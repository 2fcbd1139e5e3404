// Package app assembles repositories and services from configuration. Both
// the HTTP server and the operator CLI build on it.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/repository"
	"github.com/noah-isme/workhabits-api/internal/service"
	"github.com/noah-isme/workhabits-api/pkg/config"
	"github.com/noah-isme/workhabits-api/pkg/jobs"
	"github.com/noah-isme/workhabits-api/pkg/storage"
)

// Container holds the wired dependency graph.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Users    *repository.UserRepository
	Students *repository.StudentRepository
	Entries  *repository.HabitEntryRepository
	Jobs     *repository.ReportRepository

	Metrics   *service.MetricsService
	Cache     *service.CacheService
	Auth      *service.AuthService
	Roster    *service.StudentService
	Habits    *service.HabitEntryService
	Analytics *service.AnalyticsService
	Demo      *service.DemoDataService

	// Report pipeline; nil when reports are disabled.
	Export  *service.ExportService
	Reports *service.ReportService
	Worker  *service.ReportWorker
	Queue   *jobs.Queue
}

// New wires every service. redisClient may be nil, in which case analytics
// are computed on every request.
func New(cfg *config.Config, db *sqlx.DB, redisClient redis.UniversalClient, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Users:    repository.NewUserRepository(db),
		Students: repository.NewStudentRepository(db),
		Entries:  repository.NewHabitEntryRepository(db),
		Jobs:     repository.NewReportRepository(db),
		Metrics:  service.NewMetricsService(),
	}

	validate := service.NewValidator()
	cacheRepo := repository.NewCacheRepository(redisClient, logger.Named("cache"))
	c.Cache = service.NewCacheService(cacheRepo, c.Metrics, cfg.Analytics.CacheTTL, logger.Named("cache"),
		cfg.Analytics.CacheEnabled && redisClient != nil)

	c.Auth = service.NewAuthService(c.Users, validate, logger.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	c.Roster = service.NewStudentService(c.Students, c.Entries, c.Users, c.Cache, validate, logger.Named("students"))
	c.Habits = service.NewHabitEntryService(c.Entries, c.Students, c.Users, c.Cache, c.Metrics, validate, logger.Named("entries"))
	c.Analytics = service.NewAnalyticsService(c.Students, c.Entries, c.Cache, c.Metrics, service.AnalyticsConfig{
		CacheTTL:    cfg.Analytics.CacheTTL,
		RecentLimit: cfg.Analytics.RecentLimit,
	}, logger.Named("analytics"))
	c.Demo = service.NewDemoDataService(c.Students, c.Entries, c.Users, c.Cache, c.Metrics, nil, logger.Named("demo"))

	if cfg.Reports.Enabled {
		if err := c.wireReports(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) wireReports() error {
	cfg := c.Config
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return fmt.Errorf("init report storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	c.Export = service.NewExportService(c.Students, c.Entries, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, c.Logger.Named("export"), nil, nil)
	c.Worker = service.NewReportWorker(c.Jobs, c.Export, c.Metrics, c.Logger.Named("report_worker"))
	c.Queue = jobs.NewQueue("reports", c.Worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		OnFailure:  c.Worker.Fail,
		Logger:     c.Logger,
	})
	c.Reports = service.NewReportService(c.Jobs, c.Students, c.Queue, c.Export, c.Logger.Named("reports"), service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	return nil
}

// StartBackground launches the report queue, replays jobs left queued by a
// previous process and schedules export cleanup. It is a no-op when reports
// are disabled.
func (c *Container) StartBackground(ctx context.Context) {
	if c.Queue == nil {
		return
	}
	c.Queue.Start(ctx)
	c.Reports.RecoverPendingJobs(ctx)
	c.Reports.StartCleanup(ctx)
}

// Stop drains background workers.
func (c *Container) Stop() {
	if c.Queue != nil {
		c.Queue.Stop()
	}
}
