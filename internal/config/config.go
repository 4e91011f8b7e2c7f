package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	DBConnStr string
	Storage   string
	GRPCPort  string
	APIToken  string

	LogLevel  string
	LogPretty bool

	CategoryServiceURL string
	CategoryTimeout    time.Duration
	CategoryRatePerSec float64
	CategoryCacheTTL   time.Duration

	IngestWorkers int
	SeedOwners    []int64
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Ignore error, .env is optional
	_ = godotenv.Load()

	seedOwners, err := parseOwners(os.Getenv("SEED_OWNERS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBConnStr:          getEnv("DB_CONN_STR", ""),
		Storage:            strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		GRPCPort:           getEnv("GRPC_PORT", ":8080"),
		APIToken:           getEnv("API_TOKEN", "dev-token"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvAsBool("LOG_PRETTY", false),
		CategoryServiceURL: getEnv("CATEGORY_SERVICE_URL", ""),
		CategoryTimeout:    getEnvAsDuration("CATEGORY_TIMEOUT", 3*time.Second),
		CategoryRatePerSec: getEnvAsFloat("CATEGORY_RATE_PER_SEC", 5),
		CategoryCacheTTL:   getEnvAsDuration("CATEGORY_CACHE_TTL", 24*time.Hour),
		IngestWorkers:      getEnvAsInt("INGEST_WORKERS", 4),
		SeedOwners:         seedOwners,
	}

	// Build the connection string from individual vars (Docker friendly)
	if cfg.DBConnStr == "" {
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "portfolio_ledger"),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot start with
func (c *Config) Validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("invalid STORAGE %q: must be %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("INGEST_WORKERS must be positive, got %d", c.IngestWorkers)
	}
	if c.CategoryTimeout <= 0 {
		return fmt.Errorf("CATEGORY_TIMEOUT must be positive, got %s", c.CategoryTimeout)
	}
	if c.CategoryRatePerSec <= 0 {
		return fmt.Errorf("CATEGORY_RATE_PER_SEC must be positive, got %v", c.CategoryRatePerSec)
	}
	return nil
}

// parseOwners reads a comma separated list of owner ids
func parseOwners(value string) ([]int64, error) {
	var owners []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid owner id %q in SEED_OWNERS", part)
		}
		owners = append(owners, id)
	}
	return owners, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
