package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Pipeline
	PopulationSize    int           // synthetic records per job
	Concurrency       int           // parallel model calls within a job
	MaxConcurrentJobs int64         // simultaneous pipelines per process
	RequestTimeout    time.Duration // per model call
	MaxRetries        int           // extra attempts per model call
	JobTimeout        time.Duration // wall-clock ceiling per job
	DropRateThreshold float64       // fraction of dropped records that fails the job
	DecisionThreshold float64       // positive-outcome cutoff on the decision score
	SchemaFile        string        // optional YAML feature schema

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "fairprobe"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "analysis"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		PopulationSize:    getEnvInt("FAIRPROBE_POPULATION_SIZE", 100),
		Concurrency:       getEnvInt("FAIRPROBE_CONCURRENCY", 8),
		MaxConcurrentJobs: int64(getEnvInt("FAIRPROBE_MAX_JOBS", 4)),
		RequestTimeout:    getEnvDuration("FAIRPROBE_REQUEST_TIMEOUT", 10*time.Second),
		MaxRetries:        getEnvInt("FAIRPROBE_MAX_RETRIES", 2),
		JobTimeout:        getEnvDuration("FAIRPROBE_JOB_TIMEOUT", 10*time.Minute),
		DropRateThreshold: getEnvFloat("FAIRPROBE_DROP_RATE_THRESHOLD", 0.5),
		DecisionThreshold: getEnvFloat("FAIRPROBE_DECISION_THRESHOLD", 0.5),
		SchemaFile:        getEnv("FAIRPROBE_SCHEMA_FILE", ""),

		LogFile:  getEnv("FAIRPROBE_LOG_FILE", "/tmp/fairprobe.log"),
		LogLevel: parseLogLevel(getEnv("FAIRPROBE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
