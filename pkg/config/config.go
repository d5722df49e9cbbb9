package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. Environment
// variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External provider
	Provider ProviderConfig

	// Freshness TTLs per data kind
	TTL TTLConfig

	// Scoring
	Scoring ScoringConfig

	// Ingestion
	Ingest IngestConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. The cache layer is purely a
// performance layer; Enabled=false degrades every read to the store.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds market data provider configuration.
type ProviderConfig struct {
	BaseURL        string
	Timeout        time.Duration // per external call
	PriceRetries   int
	FundRetries    int
	RatePerSecond  int // provider request budget
	LookbackBars   int // trading periods fetched per price refresh
}

// TTLConfig holds per-kind freshness thresholds.
type TTLConfig struct {
	Signal      time.Duration
	Price       time.Duration
	Fundamental time.Duration
	TopSignals  time.Duration
}

// ScoringConfig holds composite scoring parameters.
type ScoringConfig struct {
	// MinBars is the minimum price history required to score at all.
	MinBars int
	// ConflictGap is the technical-vs-fundamental sub-score gap beyond
	// which a HOLD-band composite is downgraded to NO_SIGNAL.
	ConflictGap float64
}

// IngestConfig holds coordinator and sweep parameters.
type IngestConfig struct {
	Workers     int
	TaskTimeout time.Duration // wall-clock ceiling per full refresh
}

// Load reads configuration from environment variables, consulting a
// .env file when one is present.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Provider: ProviderConfig{
			BaseURL:       getEnv("PROVIDER_BASE_URL", "https://query1.finance.yahoo.com"),
			Timeout:       getEnvAsDuration("PROVIDER_TIMEOUT", "10s"),
			PriceRetries:  getEnvAsInt("PROVIDER_PRICE_RETRIES", 3),
			FundRetries:   getEnvAsInt("PROVIDER_FUND_RETRIES", 2),
			RatePerSecond: getEnvAsInt("PROVIDER_RATE_PER_SECOND", 5),
			LookbackBars:  getEnvAsInt("PROVIDER_LOOKBACK_BARS", 252),
		},

		TTL: TTLConfig{
			Signal:      getEnvAsDuration("TTL_SIGNAL", "1h"),
			Price:       getEnvAsDuration("TTL_PRICE", "5m"),
			Fundamental: getEnvAsDuration("TTL_FUNDAMENTAL", "24h"),
			TopSignals:  getEnvAsDuration("TTL_TOP_SIGNALS", "15m"),
		},

		Scoring: ScoringConfig{
			MinBars:     getEnvAsInt("SCORING_MIN_BARS", 20),
			ConflictGap: getEnvAsFloat("SCORING_CONFLICT_GAP", 45),
		},

		Ingest: IngestConfig{
			Workers:     getEnvAsInt("INGEST_WORKERS", 5),
			TaskTimeout: getEnvAsDuration("INGEST_TASK_TIMEOUT", "60s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration values.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}

	return nil
}

// loadEnvFile tries to load .env from a few likely locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
