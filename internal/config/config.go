// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	AdminToken string

	RedisAddr     string
	RedisPassword string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	SnapshotKey string

	PostgresDSN string

	CacheTTL time.Duration

	RateLimit       int
	RateLimitWindow time.Duration
	MaxBytesPerDay  int64

	JobsFile      string
	JobsWorkDir   string
	JobsModuleDir string

	SendgridAPIKey string
	AlertFrom      string
	AlertTo        string
}

// Load reads configuration from the environment. RedisAddr may be empty,
// in which case the rate limiter falls back to its in-process counters
// and snapshot responses are always fetched from the origin.
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		AdminToken: mustGetEnv("ADMIN_TOKEN"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		S3Bucket:    getEnv("S3_BUCKET", "gtixt-snapshots"),
		S3Region:    getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: mustGetEnv("AWS_ACCESS_KEY_ID"),
		S3SecretKey: mustGetEnv("AWS_SECRET_ACCESS_KEY"),
		SnapshotKey: getEnv("SNAPSHOT_KEY", "snapshots/latest.json"),

		PostgresDSN: mustGetEnv("POSTGRES_DSN"),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		RateLimit:       getEnvInt("RATE_LIMIT", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		MaxBytesPerDay:  int64(getEnvInt("MAX_BYTES_PER_DAY", 50*1024*1024)),

		JobsFile:      getEnv("JOBS_FILE", "jobs.yaml"),
		JobsWorkDir:   getEnv("JOBS_WORK_DIR", "."),
		JobsModuleDir: getEnv("JOBS_MODULE_DIR", ""),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AlertFrom:      getEnv("ALERT_FROM", ""),
		AlertTo:        getEnv("ALERT_TO", ""),
	}
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("Missing required environment variable: " + key)
	}
	return value
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
