// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the calibration database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Readout calibration defaults used by the scheduled recalibration job
	// and by requests that do not carry their own parameters.
	CalibrationQubits     int     // Register size calibrated by the background job
	ReadoutP0             float64 // Probability a true 0 reads as 1
	ReadoutP1             float64 // Probability a true 1 reads as 0
	CalibrationShots      int     // Repetitions per calibration circuit
	RecalibrationSchedule string  // Cron expression; empty disables the job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RCI_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		Port:                  getEnvAsInt("RCI_PORT", 8010),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		CalibrationQubits:     getEnvAsInt("RCI_CALIBRATION_QUBITS", 2),
		ReadoutP0:             getEnvAsFloat("RCI_READOUT_P0", 0.01),
		ReadoutP1:             getEnvAsFloat("RCI_READOUT_P1", 0.01),
		CalibrationShots:      getEnvAsInt("RCI_CALIBRATION_SHOTS", 1000),
		RecalibrationSchedule: getEnv("RCI_RECALIBRATION_SCHEDULE", "@every 6h"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.CalibrationQubits < 1 {
		return fmt.Errorf("RCI_CALIBRATION_QUBITS must be at least 1, got %d", c.CalibrationQubits)
	}
	if c.ReadoutP0 < 0 || c.ReadoutP0 > 1 || c.ReadoutP1 < 0 || c.ReadoutP1 > 1 {
		return fmt.Errorf("readout flip probabilities must be in [0,1], got p0=%v p1=%v", c.ReadoutP0, c.ReadoutP1)
	}
	if c.CalibrationShots < 1 {
		return fmt.Errorf("RCI_CALIBRATION_SHOTS must be positive, got %d", c.CalibrationShots)
	}
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
