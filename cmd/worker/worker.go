package main

import (
	"context"
	"log"
	"time"

	"medvault-rag/internal/ai"
	"medvault-rag/internal/config"
	"medvault-rag/internal/logger"
	"medvault-rag/internal/queue"
	"medvault-rag/internal/store"
	"medvault-rag/internal/telemetry"
	"medvault-rag/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

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

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	if _, err := telemetry.InitMetrics(); err != nil {
		log.Fatal("Failed to init metrics:", err)
	}

	geminiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	reportStore := store.NewReportStore(db)
	summaryCache := store.NewSummaryCache(rdb)
	storageClient := services.NewStorageClient(cfg)
	ocrClient := services.NewOCRClient(cfg)
	extractor := services.NewMetadataExtractor(geminiClient)

	ingestService := services.NewIngestService(cfg, storageClient, ocrClient, extractor, reportStore, summaryCache)

	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to build queue options:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingestService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestReports, processor.HandleIngest)

	logger.Info("worker starting", "concurrency", 10)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
