package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	BaseURL       string   // Public base for short links, e.g. https://lnk.example.com
	FrontendURL   string   // Dashboard origin
	CORSOrigins   []string // Allowed browser origins (HTTP and websocket)
	JWTSecret     string
	JWTTTL        int // hours
	LogLevel      string
	LogPath       string // Empty means stdout only
	RecordTimeout time.Duration

	RateLimitRPS           float64
	RateLimitBurst         int
	RateLimitAuthRPS       float64
	RateLimitAuthBurst     int
	RateLimitShortenRPS    float64
	RateLimitShortenBurst  int
	RateLimitRedirectRPS   float64
	RateLimitRedirectBurst int

	QRSize          int
	DefaultMaxURLs  int
	CleanupSchedule string
}

// Load reads configuration from the environment, after an optional .env file.
// The boolean reports whether a .env file was found.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load() == nil

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:5173")

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		BaseURL:       strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:   frontendURL,
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{frontendURL}),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTTTL:        getEnvInt("JWT_TTL_HOURS", 168),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
		RecordTimeout: time.Duration(getEnvInt("RECORD_TIMEOUT_MS", 2000)) * time.Millisecond,

		RateLimitRPS:           getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitAuthRPS:       getEnvFloat("RATE_LIMIT_AUTH_RPS", 5),
		RateLimitAuthBurst:     getEnvInt("RATE_LIMIT_AUTH_BURST", 10),
		RateLimitShortenRPS:    getEnvFloat("RATE_LIMIT_SHORTEN_RPS", 2),
		RateLimitShortenBurst:  getEnvInt("RATE_LIMIT_SHORTEN_BURST", 5),
		RateLimitRedirectRPS:   getEnvFloat("RATE_LIMIT_REDIRECT_RPS", 30),
		RateLimitRedirectBurst: getEnvInt("RATE_LIMIT_REDIRECT_BURST", 60),

		QRSize:          getEnvInt("QR_SIZE", 256),
		DefaultMaxURLs:  getEnvInt("DEFAULT_MAX_URLS", 50),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@hourly"),
	}, envLoaded
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.RecordTimeout <= 0 {
		errs = append(errs, errors.New("RECORD_TIMEOUT_MS must be positive"))
	}
	return errors.Join(errs...)
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
