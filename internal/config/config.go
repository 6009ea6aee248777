package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"cdibeta/internal/errors"
)

// Config represents the complete analysis configuration. The input file
// path is always explicit configuration, never inherited from a working
// directory.
type Config struct {
	Data     DataConfig
	Analysis AnalysisConfig
}

// DataConfig holds dataset input settings
type DataConfig struct {
	InputFile string
}

// AnalysisConfig holds modeling and diagnostic settings
type AnalysisConfig struct {
	Seed         int64
	RunStability bool
	MaxParallel  int
}

// Load reads configuration from the environment (after an optional .env
// file) and validates it.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Data: DataConfig{
			InputFile: getEnvOrDefault("INPUT_FILE", ""),
		},
		Analysis: AnalysisConfig{
			Seed:         getEnvInt64OrDefault("SEED", 42),
			RunStability: getEnvBoolOrDefault("RUN_STABILITY", false),
			MaxParallel:  getEnvIntOrDefault("MAX_PARALLEL", 4),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Data.InputFile == "" {
		return errors.ConfigInvalid("INPUT_FILE is required")
	}
	if cfg.Analysis.MaxParallel < 1 {
		return errors.ConfigInvalid("MAX_PARALLEL must be >= 1")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
