package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/quasarhq/quasar-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort         string
	JWTSecret          string
	JWTExpiration      time.Duration
	DatabaseURL        string
	RateLimitPerMinute int
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", ":8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	// postgres:// picks the PostgreSQL driver, anything else is a SQLite path.
	databaseURL := getEnv("DATABASE_URL", "data/quasar.db")
	rateLimitStr := getEnv("RATE_LIMIT_PER_MINUTE", "60")

	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}
	if jwtSecret == "!!replace_this_with_a_real_secret_key!!" {
		customLog.Warnln("WARNING: JWT_SECRET is set to the default placeholder!")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}
	jwtExpiration := time.Hour * time.Duration(jwtExpHours)

	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil || rateLimit <= 0 {
		customLog.Warnf("Invalid RATE_LIMIT_PER_MINUTE '%s'. Using default 60.", rateLimitStr)
		rateLimit = 60
	}

	cfg := &Config{
		ServerPort:         port,
		JWTSecret:          jwtSecret,
		JWTExpiration:      jwtExpiration,
		DatabaseURL:        databaseURL,
		RateLimitPerMinute: rateLimit,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v", cfg.ServerPort, cfg.JWTExpiration)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
// It also checks for required critical variables like JWT_SECRET.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if fallback == "" {
		customLog.Fatalf("Critical environment variable '%s' is missing and has no fallback.", key)
	}
	return fallback
}
