package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	LogMode       string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	Queue   QueueConfig
	Payout  PayoutConfig
	Sweeper SweeperConfig

	RateLimitCreatePerMin int
}

// QueueConfig selects the task broker and sizes the worker pool.
type QueueConfig struct {
	Driver       string
	Concurrency  int
	PollInterval time.Duration
	Embedded     bool
}

// PayoutConfig carries the pipeline knobs.
type PayoutConfig struct {
	ProcessingDelay time.Duration
	WebhookTimeout  time.Duration
	RiskLimit       string
}

type SweeperConfig struct {
	Schedule   string
	StaleAfter time.Duration
	BatchSize  int
}

const (
	QueueDriverRedis  = "redis"
	QueueDriverMemory = "memory"
)

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		LogMode:       getEnv("LOG_MODE", "development"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "payouts"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		Queue: QueueConfig{
			Driver:       getEnv("QUEUE_DRIVER", QueueDriverRedis),
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 4),
			PollInterval: time.Duration(getEnvAsInt("WORKER_POLL_INTERVAL_MS", 200)) * time.Millisecond,
			Embedded:     getEnvAsBool("WORKER_EMBEDDED", false),
		},
		Payout: PayoutConfig{
			ProcessingDelay: time.Duration(getEnvAsInt("PAYOUT_PROCESSING_DELAY_SECONDS", 2)) * time.Second,
			WebhookTimeout:  time.Duration(getEnvAsInt("WEBHOOK_TIMEOUT_SECONDS", 5)) * time.Second,
			RiskLimit:       getEnv("PAYOUT_RISK_LIMIT", "1000000"),
		},
		Sweeper: SweeperConfig{
			Schedule:   getEnv("SWEEPER_SCHEDULE", "@every 1m"),
			StaleAfter: time.Duration(getEnvAsInt("SWEEPER_STALE_AFTER_SECONDS", 300)) * time.Second,
			BatchSize:  getEnvAsInt("SWEEPER_BATCH_SIZE", 100),
		},
		RateLimitCreatePerMin: getEnvAsInt("RATE_LIMIT_CREATE_PER_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
