// Package config loads process configuration from the environment,
// collected into a single struct instead of scattered os.Getenv calls.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything both cmd/api and cmd/worker need at startup.
type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	LogLevel  string
	LogPretty bool

	HTTPAddr    string
	CORSOrigins []string
	Environment string

	PluginsDir      string
	WorkspaceBase   string
	ArtifactsBase   string
	CleanupWorkspace bool
	MaxConcurrentJobs int
	DefaultPipeline   string

	QueueBackend    string // "chan" or "redis"
	QueueCapacity   int
	WorkerCount     int
	RedisAddr       string
	SweepInterval   time.Duration
	StaleJobTimeout time.Duration

	ShutdownTimeout time.Duration
}

// Load reads a .env file if present (ignored if missing) and then
// collects every recognized environment variable into a Config, the
// way cmd/main.go's getEnv/getEnvInt helpers do.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "aetherframe"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "aetherframe"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		Environment: getEnv("ENVIRONMENT", "development"),

		PluginsDir:        getEnv("PLUGINS_DIR", "./plugins"),
		WorkspaceBase:     getEnv("WORKSPACE_BASE", "./data/workspace"),
		ArtifactsBase:     getEnv("ARTIFACTS_BASE", "./data/artifacts"),
		CleanupWorkspace:  getEnvBool("CLEANUP_WORKSPACE", true),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 4),
		DefaultPipeline:   getEnv("DEFAULT_PIPELINE", "quicklook"),

		QueueBackend:    getEnv("QUEUE_BACKEND", "chan"),
		QueueCapacity:   getEnvInt("QUEUE_CAPACITY", 1000),
		WorkerCount:     getEnvInt("WORKER_COUNT", 4),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 2*time.Minute),
		StaleJobTimeout: getEnvDuration("STALE_JOB_TIMEOUT", 15*time.Minute),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
