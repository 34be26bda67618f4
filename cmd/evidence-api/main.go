package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/tpdc055/policemanagementsystem-sub000/api/swagger"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/blob"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/handler"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/middleware"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/repository"
	"github.com/tpdc055/policemanagementsystem-sub000/internal/service"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/cache"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/config"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/database"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/jobs"
	"github.com/tpdc055/policemanagementsystem-sub000/pkg/logger"
	corsmiddleware "github.com/tpdc055/policemanagementsystem-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/tpdc055/policemanagementsystem-sub000/pkg/middleware/requestid"
)

// @title Police Evidence Custody API
// @version 1.0.0
// @description Digital evidence ingest, custody and retention service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()

	s3Client, err := blob.NewS3Client(ctx, cfg.Blob)
	if err != nil {
		logr.Sugar().Fatalw("failed to build storage client", "error", err)
	}
	store := blob.NewInstrumentedStore(blob.NewS3Store(s3Client, cfg.Blob), metricsSvc.ObserveBlobOp)
	presigner := blob.NewS3Presigner(s3Client, cfg.Blob.Bucket)

	evidenceRepo := repository.NewEvidenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditRecorder := service.NewAuditRecorder(auditRepo, metricsSvc, logr, cfg.Audit.QueueSize)
	auditRecorder.Start()
	defer auditRecorder.Close()

	authSvc := service.NewAuthService(cfg.JWT.Secret)
	evidenceSvc := service.NewEvidenceService(evidenceRepo, store, auditRecorder, metricsSvc, logr, cfg.Upload, cfg.Blob.StorageClass)
	retentionSvc := service.NewRetentionService(evidenceRepo, store, auditRecorder, logr, cfg.Retention, cfg.Blob.ArchiveClass)
	capabilitySvc := service.NewCapabilityService(presigner, evidenceSvc.Gate(), auditRecorder, logr, cfg.Presign)
	storageMetricsSvc := service.NewStorageMetricsService(evidenceRepo, redisClient, auditRecorder, logr, cfg.Metrics)

	// Fresh uploads are re-read and digest-checked in the background.
	verifyQueue := jobs.NewQueue("verify-upload", func(ctx context.Context, job jobs.Job) error {
		key, _ := job.Payload.(string)
		if key == "" {
			return nil
		}
		return evidenceSvc.Verify(ctx, key)
	}, jobs.QueueConfig{
		Workers:    cfg.Process.Workers,
		MaxRetries: cfg.Process.MaxRetries,
		Logger:     logr,
	})
	verifyQueue.Start(ctx)
	defer verifyQueue.Stop()

	evidenceSvc.SetVerifyEnqueue(func(key string) {
		if err := verifyQueue.Enqueue(jobs.Job{ID: key, Type: "verify", Payload: key}); err != nil {
			logr.Sugar().Warnw("failed to enqueue verification", "key", key, "error", err)
		}
	})

	evidenceHandler := handler.NewEvidenceHandler(evidenceSvc, retentionSvc, capabilitySvc, auditRepo)
	metricsHandler := handler.NewMetricsHandler(storageMetricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "cache unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	evidence := api.Group("/evidence")
	{
		evidence.POST("", evidenceHandler.Upload)
		evidence.GET("", evidenceHandler.List)
		evidence.GET("/meta/*key", evidenceHandler.Get)
		evidence.GET("/download/*key", evidenceHandler.Download)
		evidence.GET("/custody/*key", evidenceHandler.CustodyReport)
		evidence.POST("/presign-upload", evidenceHandler.PresignUpload)
		evidence.GET("/audit/*key", middleware.RequireElevated(), evidenceHandler.AuditTrail)
		evidence.DELETE("/*key", middleware.RequireElevated(), evidenceHandler.Delete)
		evidence.POST("/restore", middleware.RequireElevated(), evidenceHandler.Restore)
	}

	api.GET("/metrics/storage", metricsHandler.StorageReport)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
