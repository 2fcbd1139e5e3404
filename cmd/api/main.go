package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/api/swagger"
	"github.com/noah-isme/workhabits-api/internal/app"
	"github.com/noah-isme/workhabits-api/internal/handler"
	"github.com/noah-isme/workhabits-api/internal/middleware"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/pkg/cache"
	"github.com/noah-isme/workhabits-api/pkg/config"
	"github.com/noah-isme/workhabits-api/pkg/database"
	"github.com/noah-isme/workhabits-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/workhabits-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/workhabits-api/pkg/middleware/requestid"
)

// @title Work Habits API
// @version 1.0.0
// @description Record and analyse student work-habit assessments.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Analytics fall back to direct computation.
		logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	container, err := app.New(cfg, db, redisClient, logr)
	if err != nil {
		return err
	}
	container.StartBackground(ctx)
	defer container.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(container.Metrics))
	r.Use(middleware.WithResponseMeta())

	checks := []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(container.Auth),
		Students:  handler.NewStudentHandler(container.Roster, container.Habits, container.Analytics),
		Entries:   handler.NewHabitEntryHandler(container.Habits, cfg.Analytics.RecentLimit),
		Analytics: handler.NewAnalyticsHandler(container.Analytics),
		Demo:      handler.NewDemoDataHandler(container.Demo),
		System:    handler.NewMetricsHandler(container.Metrics, checks...),
	}
	routes := handler.RouteConfig{APIPrefix: cfg.APIPrefix, Auth: middleware.JWT(container.Auth)}
	if container.Reports != nil {
		handlers.Reports = handler.NewReportHandler(container.Reports, logr.Named("reports"))
		routes.ReportAudit = middleware.Audit(container.Users, models.AuditActionReportRequest, "report_jobs", logr)
	}
	handler.RegisterRoutes(r, routes, handlers)

	if cfg.Env != config.EnvProduction {
		swagger.SwaggerInfo.BasePath = cfg.APIPrefix
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
