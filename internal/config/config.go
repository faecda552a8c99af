package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret-change-me"

type Config struct {
	Env      string
	Port     int
	DBURL    string
	LogLevel string

	// Storage is "postgres" (default) or "memory".
	Storage     string
	AutoMigrate bool

	JWTSecret           string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int

	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	NotesCacheTTLSeconds int

	OTELEndpoint    string
	OTELServiceName string
	OTELSampleRatio float64

	CORSAllowedOrigins []string

	AuthRateLimit         int
	AuthRateWindowSeconds int
	NotesRateLimit        int // per user per minute, 0 disables
	MaxBodyBytes          int64

	// maintenance worker
	WorkerPort                int
	TokenSweepIntervalMinutes int
	TokenRetentionHours       int
}

func Load() Config {
	// a missing .env is fine, real deployments use the environment
	_ = godotenv.Load()

	return Config{
		Env:      getEnv("APP_ENV", "dev"),
		Port:     getEnvInt("PORT", 8080),
		DBURL:    buildDBURL(),
		LogLevel: getEnv("LOG_LEVEL", ""),

		Storage:     strings.ToLower(getEnv("STORAGE", "postgres")),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),

		JWTSecret:           getEnv("JWT_SECRET", defaultJWTSecret),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 7),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		NotesCacheTTLSeconds: getEnvInt("NOTES_CACHE_TTL_SECONDS", 60),

		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "notehub-api"),
		OTELSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		AuthRateLimit:         getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindowSeconds: getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60),
		NotesRateLimit:        getEnvInt("NOTES_RATE_LIMIT", 300),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		WorkerPort:                getEnvInt("WORKER_PORT", 8081),
		TokenSweepIntervalMinutes: getEnvInt("TOKEN_SWEEP_INTERVAL_MINUTES", 10),
		TokenRetentionHours:       getEnvInt("TOKEN_RETENTION_HOURS", 24),
	}
}

// Validate rejects configurations that must never reach production.
func (c Config) Validate() error {
	if c.Storage != "postgres" && c.Storage != "memory" {
		return errors.New("STORAGE must be postgres or memory")
	}
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return errors.New("JWT_SECRET must be set in prod")
	}
	if c.JWTAccessTTLMinutes <= 0 || c.JWTRefreshTTLDays <= 0 {
		return errors.New("JWT TTLs must be positive")
	}
	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func (c Config) TokenSweepInterval() time.Duration {
	return time.Duration(c.TokenSweepIntervalMinutes) * time.Minute
}

func (c Config) TokenRetention() time.Duration {
	return time.Duration(c.TokenRetentionHours) * time.Hour
}

func (c Config) NotesCacheTTL() time.Duration {
	return time.Duration(c.NotesCacheTTLSeconds) * time.Second
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "notehub")
	pass := getEnv("DB_PASSWORD", "notehub")
	name := getEnv("DB_NAME", "notehub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env var, using fallback", "key", key, "value", v, "fallback", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using fallback", "key", key, "value", v, "fallback", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
