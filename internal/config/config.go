// Package config provides runtime configuration values for ordercrm.
//
// Values come from the environment, then from the optional YAML file named by
// ORDERCRM_CONFIG, then from built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvConfigFile = "ORDERCRM_CONFIG"

type Config struct {
	CatalogFile string
	LedgerFile  string
	// JournalDB is the SQLite journal path. Empty disables the journal.
	JournalDB string

	HTTPAddr string
	GRPCAddr string

	// RedisAddr selects the Redis idempotency cache. Empty keeps it in process.
	RedisAddr      string
	IdempotencyTTL time.Duration

	OTLPEndpoint string
	ServiceName  string
	LogLevel     string

	ShutdownTimeout time.Duration
}

// fileConfig mirrors Config in the YAML file. Keys match the environment
// variable names.
type fileConfig struct {
	CatalogFile     string `yaml:"CATALOG_FILE"`
	LedgerFile      string `yaml:"LEDGER_FILE"`
	JournalDB       string `yaml:"JOURNAL_DB"`
	HTTPAddr        string `yaml:"HTTP_ADDR"`
	GRPCAddr        string `yaml:"GRPC_ADDR"`
	RedisAddr       string `yaml:"REDIS_ADDR"`
	IdempotencyTTL  string `yaml:"IDEMPOTENCY_TTL"`
	OTLPEndpoint    string `yaml:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName     string `yaml:"OTEL_SERVICE_NAME"`
	LogLevel        string `yaml:"LOG_LEVEL"`
	ShutdownTimeout string `yaml:"SHUTDOWN_TIMEOUT"`
}

// Load collects configuration from the environment and the optional file.
func Load() (Config, error) {
	var fc fileConfig
	if path := os.Getenv(EnvConfigFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	ttl, err := getDuration("IDEMPOTENCY_TTL", fc.IdempotencyTTL, 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	shutdown, err := getDuration("SHUTDOWN_TIMEOUT", fc.ShutdownTimeout, 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		CatalogFile:     getEnv("CATALOG_FILE", fc.CatalogFile, "data/products.txt"),
		LedgerFile:      getEnv("LEDGER_FILE", fc.LedgerFile, "data/orders.txt"),
		JournalDB:       getEnv("JOURNAL_DB", fc.JournalDB, "data/journal.db"),
		HTTPAddr:        getEnv("HTTP_ADDR", fc.HTTPAddr, ":8080"),
		GRPCAddr:        getEnv("GRPC_ADDR", fc.GRPCAddr, ":9090"),
		RedisAddr:       getEnv("REDIS_ADDR", fc.RedisAddr, ""),
		IdempotencyTTL:  ttl,
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", fc.OTLPEndpoint, ""),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", fc.ServiceName, "ordercrm"),
		LogLevel:        getEnv("LOG_LEVEL", fc.LogLevel, "info"),
		ShutdownTimeout: shutdown,
	}, nil
}

func getEnv(key, fromFile, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fromFile != "" {
		return fromFile
	}
	return fallback
}

func getDuration(key, fromFile string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, fromFile, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
