// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds engine configuration.
type Config struct {
	LogLevel string

	// StoreType selects the result store backend: "memory", "sqlite" or
	// "postgres".
	StoreType   string
	DatabaseURL string
	SQLitePath  string

	// RulepackSourceType selects where policy YAML comes from: "fs", "s3"
	// or "gcs". The per-source settings live in their own env vars, read
	// by the rulepack package.
	RulepackSourceType string
	RulepackDir        string

	RedisAddr string

	OTLPEndpoint      string
	TelemetryEnabled  bool
	TelemetryInsecure bool
	Environment       string

	BatchWorkers int
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	storeType := os.Getenv("RESULT_STORE")
	if storeType == "" {
		storeType = "memory"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local generic postgres
		dbURL = "postgres://regnav@localhost:5432/regnav?sslmode=disable"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "regnav.db"
	}

	sourceType := os.Getenv("RULEPACK_SOURCE_TYPE")
	if sourceType == "" {
		sourceType = "fs"
	}

	rulepackDir := os.Getenv("RULEPACK_DIR")
	if rulepackDir == "" {
		rulepackDir = "config/regulators"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	workers := 4
	if v := os.Getenv("BATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			workers = n
		}
	}

	return &Config{
		LogLevel:           logLevel,
		StoreType:          storeType,
		DatabaseURL:        dbURL,
		SQLitePath:         sqlitePath,
		RulepackSourceType: sourceType,
		RulepackDir:        rulepackDir,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		OTLPEndpoint:       otlpEndpoint,
		TelemetryEnabled:   os.Getenv("TELEMETRY_ENABLED") == "true",
		TelemetryInsecure:  os.Getenv("TELEMETRY_INSECURE") == "true",
		Environment:        environment,
		BatchWorkers:       workers,
	}
}
