package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// JWT
	AccessSecret string

	// Gemini
	GeminiAPIKey string
	GeminiTier   string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Vault storage (Supabase-compatible object store)
	StorageURL        string
	StorageBucket     string
	StorageServiceKey string

	// OCR Service Configuration
	OCRServiceURL     string
	OCRServiceEnabled bool
	OCRTimeout        int

	// Retrieval pipeline
	VectorDim         int
	MaxChunkWords     int
	ChunkOverlapWords int
	MinChunkWords     int
	RetrievalTopK     int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Cron
	OrphanSweepCron string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/medvault"),
		DBName:      getEnv("DB_NAME", "medvault"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		AccessSecret: getEnv("ACCESS_SECRET", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageURL:        getEnv("STORAGE_URL", ""),
		StorageBucket:     getEnv("STORAGE_BUCKET", "reports"),
		StorageServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),

		OCRServiceURL:     getEnv("OCR_SERVICE_URL", "http://localhost:8001"),
		OCRServiceEnabled: getEnvBool("OCR_SERVICE_ENABLED", true),
		OCRTimeout:        getEnvInt("OCR_TIMEOUT", 300), // 5 minutes

		VectorDim:         getEnvInt("VECTOR_DIM", 384),
		MaxChunkWords:     getEnvInt("MAX_CHUNK_WORDS", 250),
		ChunkOverlapWords: getEnvInt("CHUNK_OVERLAP_WORDS", 30),
		MinChunkWords:     getEnvInt("MIN_CHUNK_WORDS", 10),
		RetrievalTopK:     getEnvInt("RETRIEVAL_TOP_K", 10),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OrphanSweepCron: getEnv("ORPHAN_SWEEP_CRON", "0 */6 * * *"),
	}

	// Validate required fields
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("ACCESS_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
