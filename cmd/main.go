package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medvault-rag/internal/ai"
	"medvault-rag/internal/config"
	"medvault-rag/internal/logger"
	"medvault-rag/internal/store"
	"medvault-rag/internal/telemetry"
	"medvault-rag/middleware"
	"medvault-rag/routes"
	"medvault-rag/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Connect to Redis
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Telemetry
	shutdownTracer, err := telemetry.InitTracer("medvault-rag")
	if err != nil {
		logger.Warn("tracer init failed, continuing without tracing", "error", err)
	} else {
		defer shutdownTracer()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	// Gemini client
	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// Stores and services
	reportStore := store.NewReportStore(db)
	summaryCache := store.NewSummaryCache(rdb)
	storageClient := services.NewStorageClient(cfg)
	ocrClient := services.NewOCRClient(cfg)
	extractor := services.NewMetadataExtractor(geminiClient)

	ingestService := services.NewIngestService(cfg, storageClient, ocrClient, extractor, reportStore, summaryCache)
	summaryService := services.NewSummaryService(cfg, geminiClient, reportStore, summaryCache)
	exportService := services.NewExportService(reportStore)

	// Task queue client for async ingests
	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue options:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// Periodic orphan sweep
	cronService := services.NewCronService(cfg, ingestService)
	if err := cronService.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer cronService.Stop()

	// Router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		mongoStatus := "ok"
		if err := mongoClient.Ping(ctx, nil); err != nil {
			mongoStatus = "unreachable"
		}
		redisStatus := "ok"
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "unreachable"
		}

		status := http.StatusOK
		overall := "healthy"
		if mongoStatus != "ok" || redisStatus != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"mongo":     mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC(),
		})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg, rdb)

	routes.SetupReportRoutes(router, ingestService, summaryService, exportService, queueClient, authMiddleware)
	routes.SetupSummaryRoutes(router, summaryService, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
