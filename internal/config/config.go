package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"siteledger/internal/logger"
)

// Config is the single configuration object built at startup and passed
// explicitly to every component that needs it.
type Config struct {
	// Backend API
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Local snapshot cache
	CachePath string

	// Parallel milestone reads
	Workers int

	// Google Sheets export (optional)
	GoogleSheetURL       string
	GoogleSheetWorksheet string
	GoogleCredentials    string

	// Display
	CurrencySymbol string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// FromEnv reads the environment without validating required values, so
// command-line flags can still fill them in.
func FromEnv() (*Config, error) {
	timeout, err := getEnvSeconds("SITELEDGER_API_TIMEOUT", 30)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	workers, err := getEnvInt("SITELEDGER_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config := &Config{
		APIBaseURL:           strings.TrimRight(getEnv("SITELEDGER_API_URL", ""), "/"),
		APIToken:             getEnv("SITELEDGER_API_TOKEN", ""),
		APITimeout:           timeout,
		CachePath:            getEnv("SITELEDGER_CACHE_PATH", defaultCachePath()),
		Workers:              workers,
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Milestone_Payments"),
		GoogleCredentials:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		CurrencySymbol:       getEnv("SITELEDGER_CURRENCY_SYMBOL", "₹"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// Validate checks the values every command depends on. The API token is
// deliberately not required: the backend rejects unauthenticated calls.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("SITELEDGER_API_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITELEDGER_API_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("SITELEDGER_API_TIMEOUT must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) (time.Duration, error) {
	raw := getEnv(key, strconv.Itoa(defaultSeconds))
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number of seconds, got %q", key, raw)
	}
	return time.Duration(secs) * time.Second, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "siteledger.db"
	}
	return filepath.Join(dir, "siteledger", "snapshots.db")
}
