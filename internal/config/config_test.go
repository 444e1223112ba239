package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SITELEDGER_API_URL", "https://hse.example.com/api/")
	t.Setenv("SITELEDGER_API_TOKEN", "")
	t.Setenv("SITELEDGER_API_TIMEOUT", "")
	t.Setenv("SITELEDGER_CACHE_PATH", "/tmp/ledger.db")
	t.Setenv("SITELEDGER_WORKERS", "")
	t.Setenv("SITELEDGER_CURRENCY_SYMBOL", "")
	t.Setenv("GOOGLE_SHEET_WORKSHEET", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://hse.example.com/api", cfg.APIBaseURL)
	assert.Empty(t, cfg.APIToken)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, "/tmp/ledger.db", cfg.CachePath)
	assert.Equal(t, "₹", cfg.CurrencySymbol)
	assert.Equal(t, "Milestone_Payments", cfg.GoogleSheetWorksheet)
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := &Config{APITimeout: time.Second, Workers: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SITELEDGER_API_URL is required")
}

func TestFromEnv_BadTimeout(t *testing.T) {
	t.Setenv("SITELEDGER_API_URL", "https://hse.example.com")
	t.Setenv("SITELEDGER_API_TIMEOUT", "soon")
	t.Setenv("SITELEDGER_WORKERS", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SITELEDGER_API_TIMEOUT")
}

func TestValidate_RelativeURL(t *testing.T) {
	cfg := &Config{APIBaseURL: "hse.example.com", APITimeout: time.Second}
	assert.Error(t, cfg.Validate())
}

func TestGetLoggerConfig(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json", LogOutput: "stdout", LogTimeFormat: time.RFC3339}
	lc := cfg.GetLoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "stdout", lc.Output)
}

func TestFromEnv_DoesNotRequireBaseURL(t *testing.T) {
	t.Setenv("SITELEDGER_API_URL", "")
	t.Setenv("SITELEDGER_API_TIMEOUT", "")
	t.Setenv("SITELEDGER_WORKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.APIBaseURL)
	assert.Equal(t, 4, cfg.Workers)
	assert.Error(t, cfg.Validate())
}

func TestFromEnv_BadWorkers(t *testing.T) {
	t.Setenv("SITELEDGER_API_TIMEOUT", "")
	t.Setenv("SITELEDGER_WORKERS", "0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SITELEDGER_WORKERS")
}
