// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// StoreConfig selects the persistence backend for leads and business-intelligence records.
type StoreConfig interface {
	GetStoreBackend() string
	GetRulesFile() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitPerMinute() int
}

// SchedulerConfig provides Redis and asynq settings for background jobs.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// AIConfig provides settings for the AI analysis provider.
type AIConfig interface {
	GetAIProvider() string
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetOpenAIAPIKey() string
	GetOpenAIModel() string
	GetOpenAIBaseURL() string
}

// PlacesConfig provides settings for the Google Places client.
type PlacesConfig interface {
	GetGooglePlacesAPIKey() string
	GetGooglePlacesBaseURL() string
	GetPlacesRequestsPerSecond() float64
}

// MinIOConfig provides settings for the raw enrichment payload archive.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketEnrichmentRaw() string
	IsMinIOEnabled() bool
}

// BulkPipelineConfig provides batch sizing and pacing for the bulk analysis pipeline.
type BulkPipelineConfig interface {
	GetBulkBatchSize() int
	GetBulkStagger() time.Duration
	GetBulkBatchDelay() time.Duration
	GetBulkLeadTimeout() time.Duration
	GetBulkCostPerLead() float64
	GetBulkDefaultLimit() int
}

// Config holds every setting read from the environment.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	StoreBackend       string
	RulesFile          string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RateLimitPerMinute int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GooglePlacesAPIKey      string
	GooglePlacesBaseURL     string
	PlacesRequestsPerSecond float64

	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinioBucketEnrichmentRaw string

	BulkBatchSize    int
	BulkStagger      time.Duration
	BulkBatchDelay   time.Duration
	BulkLeadTimeout  time.Duration
	BulkCostPerLead  float64
	BulkDefaultLimit int
}

func (c *Config) GetDatabaseURL() string        { return c.DatabaseURL }
func (c *Config) GetStoreBackend() string       { return c.StoreBackend }
func (c *Config) GetRulesFile() string          { return c.RulesFile }
func (c *Config) GetHTTPAddr() string           { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool         { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string      { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool       { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerMinute() int    { return c.RateLimitPerMinute }
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetAIProvider() string         { return c.AIProvider }
func (c *Config) GetGeminiAPIKey() string       { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string        { return c.GeminiModel }
func (c *Config) GetOpenAIAPIKey() string       { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIModel() string        { return c.OpenAIModel }
func (c *Config) GetOpenAIBaseURL() string      { return c.OpenAIBaseURL }
func (c *Config) GetGooglePlacesAPIKey() string { return c.GooglePlacesAPIKey }
func (c *Config) GetGooglePlacesBaseURL() string {
	return c.GooglePlacesBaseURL
}
func (c *Config) GetPlacesRequestsPerSecond() float64 { return c.PlacesRequestsPerSecond }
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketEnrichmentRaw() string { return c.MinioBucketEnrichmentRaw }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}
func (c *Config) GetBulkBatchSize() int              { return c.BulkBatchSize }
func (c *Config) GetBulkStagger() time.Duration      { return c.BulkStagger }
func (c *Config) GetBulkBatchDelay() time.Duration   { return c.BulkBatchDelay }
func (c *Config) GetBulkLeadTimeout() time.Duration  { return c.BulkLeadTimeout }
func (c *Config) GetBulkCostPerLead() float64        { return c.BulkCostPerLead }
func (c *Config) GetBulkDefaultLimit() int           { return c.BulkDefaultLimit }

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		RulesFile:          getEnv("RULES_FILE", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerMinute: mustInt(getEnv("RATE_LIMIT_PER_MINUTE", "300"), 300),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "2"), 2),

		AIProvider:    strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		GooglePlacesAPIKey:      getEnv("GOOGLE_PLACES_API_KEY", ""),
		GooglePlacesBaseURL:     getEnv("GOOGLE_PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesRequestsPerSecond: mustFloat(getEnv("PLACES_REQUESTS_PER_SECOND", "5"), 5),

		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketEnrichmentRaw: getEnv("MINIO_BUCKET_ENRICHMENT_RAW", "bi-enrichment-raw"),

		BulkBatchSize:    mustInt(getEnv("BULK_BATCH_SIZE", "5"), 5),
		BulkStagger:      mustDuration(getEnv("BULK_STAGGER", "5s"), 5*time.Second),
		BulkBatchDelay:   mustDuration(getEnv("BULK_BATCH_DELAY", "90s"), 90*time.Second),
		BulkLeadTimeout:  mustDuration(getEnv("BULK_LEAD_TIMEOUT", "3m"), 3*time.Minute),
		BulkCostPerLead:  mustFloat(getEnv("BULK_COST_PER_LEAD", "0.07"), 0.07),
		BulkDefaultLimit: mustInt(getEnv("BULK_DEFAULT_LIMIT", "100"), 100),
	}

	if cfg.StoreBackend != StoreBackendPostgres && cfg.StoreBackend != StoreBackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q", StoreBackendPostgres, StoreBackendMemory)
	}
	if cfg.StoreBackend == StoreBackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
	}
	if cfg.AIProvider != "gemini" && cfg.AIProvider != "openai" {
		return nil, fmt.Errorf("AI_PROVIDER must be gemini or openai")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.BulkBatchSize < 1 {
		return nil, fmt.Errorf("BULK_BATCH_SIZE must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func mustFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}
