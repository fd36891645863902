// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Gemini     GeminiConfig
	Classifier ClassifierConfig
	Search     SearchConfig
	Storage    StorageConfig
	Alerts     AlertsConfig
	Jobs       JobsConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSOrigins        []string
	MaxUploadBytes     int64
	ShutdownTimeout    time.Duration
	MetricsEnabled     bool
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

// GeminiConfig is optional. Without an API key the keyword oracle is used.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Enabled reports whether Gemini classification is configured.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != ""
}

type ClassifierConfig struct {
	CallTimeout    time.Duration
	CallsPerSecond int
}

type SearchConfig struct {
	IndexPath string // empty keeps the index in memory
}

type StorageConfig struct {
	LocalPath string // empty disables statement archiving
}

type AlertsConfig struct {
	ResendAPIKey string
	From         string
	Recipient    string
	Currency     string
}

type JobsConfig struct {
	ReclassifySpec      string
	ConfidenceThreshold float64
	ReclassifyLimit     int
	AlertSpec           string
}

type LogConfig struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// Load reads configuration from environment variables. Each path is a .env
// file loaded first when it exists; variables already set win.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			CORSOrigins:        getEnvAsList("SERVER_CORS_ORIGINS", []string{"http://localhost:3000"}),
			MaxUploadBytes:     int64(getEnvAsInt("SERVER_MAX_UPLOAD_BYTES", 10<<20)),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "smart-budget"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 10),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Classifier: ClassifierConfig{
			CallTimeout:    getEnvAsDuration("CLASSIFIER_CALL_TIMEOUT", 30*time.Second),
			CallsPerSecond: getEnvAsInt("CLASSIFIER_CALLS_PER_SECOND", 5),
		},
		Search: SearchConfig{
			IndexPath: getEnv("SEARCH_INDEX_PATH", ""),
		},
		Storage: StorageConfig{
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		},
		Alerts: AlertsConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("ALERTS_FROM", ""),
			Recipient:    getEnv("ALERTS_RECIPIENT", ""),
			Currency:     getEnv("ALERTS_CURRENCY", "GBP"),
		},
		Jobs: JobsConfig{
			ReclassifySpec:      getEnv("JOBS_RECLASSIFY_SPEC", "0 2 * * *"),
			ConfidenceThreshold: getEnvAsFloat("JOBS_CONFIDENCE_THRESHOLD", 0.6),
			ReclassifyLimit:     getEnvAsInt("JOBS_RECLASSIFY_LIMIT", 500),
			AlertSpec:           getEnv("JOBS_ALERT_SPEC", "0 8 * * *"),
		},
		Log: LogConfig{
			Level:  getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.Server.Port)
	}
	if c.Gemini.Enabled() && c.Gemini.Model == "" {
		return errors.New("GEMINI_MODEL is required when GEMINI_API_KEY is set")
	}
	if c.Jobs.ConfidenceThreshold < 0 || c.Jobs.ConfidenceThreshold > 1 {
		return fmt.Errorf("JOBS_CONFIDENCE_THRESHOLD %v must be within [0, 1]", c.Jobs.ConfidenceThreshold)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT %q must be text or json", c.Log.Format)
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err == nil {
		return level
	}
	return defaultValue
}
