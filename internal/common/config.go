package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Extract  ExtractConfig
	LLM      LLMConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr          string
	UploadDir     string
	MaxUploadSize int64
}

// ExtractConfig holds text-extraction configuration
type ExtractConfig struct {
	Tesseract     string
	TesseractLang string
	DPI           int
	MaxOCRPages   int
}

// LLMConfig holds model inference configuration. Candidates and credentials
// are explicit here and passed into the chain/client rather than read from
// ambient globals at call sites.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Candidates      []string
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
	Timeout         time.Duration
	RetryDelay      time.Duration
}

// JobsConfig holds worker-pool configuration for the extraction pipeline.
type JobsConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// DefaultModelCandidates is the ordered fallback list tried per document.
var DefaultModelCandidates = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash-001",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite-001",
	"gemini-2.0-flash-lite",
	"gemini-1.5-pro-latest",
	"gemini-1.5-flash-latest",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "invoice_extraction.db"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_IDLE_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		},
		Server: ServerConfig{
			Addr:          getEnv("HTTP_ADDR", ":8080"),
			UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 16<<20),
		},
		Extract: ExtractConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxOCRPages:   getEnvAsInt("OCR_MAX_PAGES", 5),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("GOOGLE_API_KEY", ""),
			BaseURL:         getEnv("GOOGLE_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Candidates:      getEnvAsList("LLM_MODELS", DefaultModelCandidates),
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			TopP:            getEnvAsFloat32("LLM_TOP_P", 0.8),
			TopK:            getEnvAsInt("LLM_TOP_K", 40),
			MaxOutputTokens: getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 4000),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			RetryDelay:      getEnvAsDuration("LLM_RETRY_DELAY", 500*time.Millisecond),
		},
		Jobs: JobsConfig{
			Workers:    getEnvAsInt("JOB_WORKERS", 4),
			QueueSize:  getEnvAsInt("JOB_QUEUE_SIZE", 256),
			JobTimeout: getEnvAsDuration("JOB_TIMEOUT", 3*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GOOGLE_API_KEY is required", ErrInvalidInput)
	}
	if len(c.LLM.Candidates) == 0 {
		return NewAppError("CONFIG_ERROR", "LLM_MODELS must name at least one model", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
