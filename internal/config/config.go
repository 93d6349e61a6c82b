package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string
	DBDSN        string

	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	StartGraceWindow time.Duration
	GuardTimeout     time.Duration
	StaleRetryMax    int

	OutboxPollInterval time.Duration
	OutboxWorkers      int

	RedisAddr     string
	AssistBaseURL string
	AssistTimeout time.Duration

	ReminderCron string
	ReminderLead time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StartGraceWindow, err = getEnvAsDuration("START_GRACE_WINDOW", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GuardTimeout, err = getEnvAsDuration("GUARD_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.StaleRetryMax, err = getEnvAsInt("STALE_RETRY_MAX", 3); err != nil {
		return nil, err
	}
	if cfg.OutboxPollInterval, err = getEnvAsDuration("OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxWorkers, err = getEnvAsInt("OUTBOX_WORKERS", 4); err != nil {
		return nil, err
	}

	// Redis is optional; without it the assist cache stays in-process.
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.AssistBaseURL = getEnv("ASSIST_BASE_URL", "http://localhost:8091")
	if cfg.AssistTimeout, err = getEnvAsDuration("ASSIST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.ReminderCron = getEnv("REMINDER_CRON", "@every 5m")
	if cfg.ReminderLead, err = getEnvAsDuration("REMINDER_LEAD", 24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// (e.g. "15m", "1h"). It returns the default value if the variable is not set.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}
