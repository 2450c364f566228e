// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	APIURL          string // Exchange API root
	DataDir         string // Base directory for all databases (always absolute)
	LogLevel        string
	Port            int
	DevMode         bool
	RequestInterval time.Duration // Minimum spacing between exchange requests
	HTTPTimeout     time.Duration
	SessionName     string // Row the session snapshot is saved under

	Account      AccountConfig
	Registration RegistrationConfig
	Schedules    ScheduleConfig
}

// AccountConfig describes the identity the session signs up with
type AccountConfig struct {
	Email            string
	EmailVerified    bool
	EmailToken       string // Static email-proof token, used when IdentityTokenURL is empty
	IdentityTokenURL string // Endpoint issuing email-proof tokens
}

// RegistrationConfig selects how signup treats registration failures
type RegistrationConfig struct {
	Policy        string // strict, already-registered or any
	FallbackToken string // Offline token used when a failure is absorbed
}

// ScheduleConfig holds cron expressions for the background jobs. An empty
// expression disables the job.
type ScheduleConfig struct {
	TradeSync    string
	KYCSync      string
	CacheCleanup string
	WALCheck     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		APIURL:          getEnv("UNOCOIN_API_URL", "https://app-api.unocoin.com/"),
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("GO_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		RequestInterval: time.Duration(getEnvAsInt("REQUEST_INTERVAL_MS", 250)) * time.Millisecond,
		HTTPTimeout:     time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		SessionName:     getEnv("SESSION_NAME", "default"),
		Account: AccountConfig{
			Email:            getEnv("ACCOUNT_EMAIL", ""),
			EmailVerified:    getEnvAsBool("ACCOUNT_EMAIL_VERIFIED", false),
			EmailToken:       getEnv("ACCOUNT_EMAIL_TOKEN", ""),
			IdentityTokenURL: getEnv("IDENTITY_TOKEN_URL", ""),
		},
		Registration: RegistrationConfig{
			Policy:        getEnv("REGISTRATION_POLICY", "already-registered"),
			FallbackToken: getEnv("REGISTRATION_FALLBACK_TOKEN", ""),
		},
		Schedules: ScheduleConfig{
			TradeSync:    getEnv("TRADE_SYNC_SCHEDULE", "0 */5 * * * *"),
			KYCSync:      getEnv("KYC_SYNC_SCHEDULE", "0 */15 * * * *"),
			CacheCleanup: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 * * * *"),
			WALCheck:     getEnv("WAL_CHECK_SCHEDULE", "0 30 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("UNOCOIN_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT out of range: %d", c.Port)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("REQUEST_INTERVAL_MS must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.SessionName == "" {
		return fmt.Errorf("SESSION_NAME must not be empty")
	}
	if c.Account.IdentityTokenURL != "" {
		if u, err := url.Parse(c.Account.IdentityTokenURL); err != nil || u.Host == "" {
			return fmt.Errorf("IDENTITY_TOKEN_URL must be an absolute URL, got %q", c.Account.IdentityTokenURL)
		}
	}

	// Registration policy names are checked when the policy is built

	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
