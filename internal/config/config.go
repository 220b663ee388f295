// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir            string // Base directory for all databases (always absolute)
	Port               int
	LogLevel           string
	DevMode            bool
	AlphaVantageAPIKey string
	Symbols            []string // Symbols tracked by the daily sync job
	SyncSchedule       string   // Cron expression for the price sync job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RISK_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		Port:               getEnvAsInt("PORT", 8001),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		AlphaVantageAPIKey: getEnv("ALPHAVANTAGE_API_KEY", ""),
		Symbols:            splitSymbols(getEnv("RISK_SYMBOLS", "")),
		// Weekdays at 23:30 UTC, after the US close. Seconds field first.
		SyncSchedule: getEnv("SYNC_SCHEDULE", "0 30 23 * * MON-FRI"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	// An API key is only needed when there are symbols to sync; the server
	// can still answer queries over previously stored history without one.
	if len(c.Symbols) > 0 && c.AlphaVantageAPIKey == "" {
		return fmt.Errorf("ALPHAVANTAGE_API_KEY required when RISK_SYMBOLS is set")
	}

	return nil
}

// splitSymbols parses a comma-separated symbol list, trimming whitespace and
// uppercasing entries.
func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}

	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
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
