package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Audit    AuditConfig
	Identity IdentityConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	HashIndexPath   string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// AuditConfig holds verification pipeline configuration
type AuditConfig struct {
	ReviewThreshold float64
	OCRServiceURL   string
	OCRTimeout      time.Duration
	ExportDir       string
}

// IdentityConfig holds wallet identity verification configuration
type IdentityConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			HashIndexPath:   getEnv("HASH_INDEX_PATH", "./data/hashes.db"),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 32)) << 20,
		},
		Audit: AuditConfig{
			ReviewThreshold: getEnvAsFloat64("REVIEW_THRESHOLD", 0.7),
			OCRServiceURL:   getEnv("OCR_SERVICE_URL", ""),
			OCRTimeout:      getEnvAsDuration("OCR_TIMEOUT", 45*time.Second),
			ExportDir:       getEnv("EXPORT_DIR", "./tmp"),
		},
		Identity: IdentityConfig{
			Enabled:  getEnvAsBool("IDENTITY_ENABLED", false),
			CacheTTL: getEnvAsDuration("IDENTITY_CACHE_TTL", 5*time.Minute),
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
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
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_URL", c.Database.DSN, Required).
		Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	if v.HasErrors() {
		return v.Error()
	}
	if c.Audit.ReviewThreshold < 0 || c.Audit.ReviewThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "REVIEW_THRESHOLD must be in [0,1]", ErrInvalidInput)
	}
	return nil
}
