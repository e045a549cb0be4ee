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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/strength-log-api/api/swagger"
	"github.com/noah-isme/strength-log-api/internal/gemini"
	"github.com/noah-isme/strength-log-api/internal/handler"
	"github.com/noah-isme/strength-log-api/internal/middleware"
	"github.com/noah-isme/strength-log-api/internal/models"
	"github.com/noah-isme/strength-log-api/internal/repository"
	"github.com/noah-isme/strength-log-api/internal/service"
	"github.com/noah-isme/strength-log-api/pkg/cache"
	"github.com/noah-isme/strength-log-api/pkg/config"
	"github.com/noah-isme/strength-log-api/pkg/database"
	"github.com/noah-isme/strength-log-api/pkg/jobs"
	"github.com/noah-isme/strength-log-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/strength-log-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/strength-log-api/pkg/middleware/requestid"
	"github.com/noah-isme/strength-log-api/pkg/storage"
)

// @title Strength Log API
// @version 0.1.0
// @description Classroom VIA strength observation log with garden progression and AI-drafted report text
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Garden.CacheTTL, logr, cfg.Garden.CacheEnabled && redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	observationRepo := repository.NewObservationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "strength-log-api",
	})
	studentSvc := service.NewStudentService(userRepo, cacheSvc, validate, logr)
	observationSvc := service.NewObservationService(observationRepo, userRepo, cacheSvc, validate, logr, service.GardenConfig{
		CacheEnabled: cfg.Garden.CacheEnabled,
		CacheTTL:     cfg.Garden.CacheTTL,
	})

	geminiClient := gemini.NewClient(gemini.Config{
		BaseURL:         cfg.Drafts.BaseURL,
		Model:           cfg.Drafts.Model,
		Timeout:         cfg.Drafts.Timeout,
		MaxOutputTokens: cfg.Drafts.MaxOutputTokens,
	}, logr)
	reportSvc := service.NewReportService(observationRepo, userRepo, geminiClient, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportRepo := repository.NewExportJobRepository(db)
		exportSvc = service.NewExportService(exportRepo, observationRepo, userRepo, localStorage, signer, service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		}, validate, logr)
		exportQueue = jobs.NewQueue("export", exportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.SetDispatcher(exportQueue)
		exportQueue.Start(ctx)
		exportSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	observationHandler := handler.NewObservationHandler(observationSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	catalogHandler := handler.NewCatalogHandler()
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	authRequired := middleware.JWT(authSvc)
	teacherOnly := middleware.RequireRoles(models.RoleTeacher)
	teacherOrSelf := middleware.RBAC(string(models.RoleTeacher), "SELF")

	authSecured := api.Group("/auth", authRequired)
	{
		authSecured.POST("/logout", authHandler.Logout)
		authSecured.POST("/change-password", authHandler.ChangePassword)
		authSecured.GET("/me", authHandler.Me)
	}

	students := api.Group("/students", authRequired)
	{
		students.POST("", teacherOnly, studentHandler.Create)
		students.GET("", teacherOnly, studentHandler.List)
		students.GET("/:id", teacherOrSelf, studentHandler.Get)
		students.PUT("/:id/strengths", teacherOrSelf, studentHandler.UpdateStrengths)
		students.POST("/:id/reset-password", teacherOnly, studentHandler.ResetPassword)
		students.DELETE("/:id", teacherOnly, studentHandler.Delete)
		students.GET("/:id/garden", teacherOrSelf, observationHandler.Garden)
	}

	observations := api.Group("/observations", authRequired)
	{
		observations.POST("", observationHandler.Submit)
		observations.GET("", observationHandler.List)
		observations.GET("/pending", teacherOnly, observationHandler.Pending)
		observations.POST("/:id/decision", teacherOnly, observationHandler.Decide)
	}

	reports := api.Group("/reports", authRequired)
	{
		reports.POST("/draft", teacherOnly, reportHandler.Draft)
	}

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		exports := api.Group("/exports")
		{
			exports.POST("", authRequired, teacherOnly, exportHandler.Enqueue)
			exports.GET("", authRequired, teacherOnly, exportHandler.List)
			exports.GET("/download/:token", exportHandler.Download)
			exports.GET("/:id", authRequired, teacherOnly, exportHandler.Status)
		}
	}

	catalogGroup := api.Group("/catalog")
	{
		catalogGroup.GET("/strengths", catalogHandler.Strengths)
		catalogGroup.GET("/growth-stages", catalogHandler.GrowthStages)
	}

	api.GET("/metrics/summary", authRequired, teacherOnly, metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
