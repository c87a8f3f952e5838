// Package config loads the controller's runtime settings from the
// environment and the plant descriptor from YAML.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the controller's process configuration. Defaults are applied
// first, then environment overrides.
type Config struct {
	HTTPPort            string
	DatabaseURL         string
	NATSURL             string
	PlantPath           string
	AutoShutdown        bool
	ShutdownDelay       time.Duration
	Cooldown            time.Duration
	Hysteresis          float64
	MaxShutdownsPerHour int
	StepTimeoutCap      time.Duration
	HistoryCap          int
	AlertLogging        bool
}

func Default() Config {
	return Config{
		HTTPPort:            "8090",
		PlantPath:           "plant.yaml",
		AutoShutdown:        true,
		Cooldown:            5 * time.Minute,
		Hysteresis:          5.0,
		MaxShutdownsPerHour: 10,
		StepTimeoutCap:      30 * time.Second,
		HistoryCap:          1000,
		AlertLogging:        true,
	}
}

// FromEnv returns the default configuration with environment overrides
// applied.
func FromEnv() Config {
	cfg := Default()
	cfg.HTTPPort = getenv("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.NATSURL = getenv("NATS_URL", cfg.NATSURL)
	cfg.PlantPath = getenv("PLANT_CONFIG_PATH", cfg.PlantPath)
	cfg.AutoShutdown = getenvBool("AUTO_SHUTDOWN", cfg.AutoShutdown)
	cfg.ShutdownDelay = time.Duration(getenvInt("SHUTDOWN_DELAY_SECONDS", int(cfg.ShutdownDelay/time.Second))) * time.Second
	cfg.Cooldown = time.Duration(getenvInt("COOLDOWN_SECONDS", int(cfg.Cooldown/time.Second))) * time.Second
	cfg.Hysteresis = getenvFloat("HYSTERESIS_C", cfg.Hysteresis)
	cfg.MaxShutdownsPerHour = getenvInt("MAX_SHUTDOWNS_PER_HOUR", cfg.MaxShutdownsPerHour)
	cfg.StepTimeoutCap = time.Duration(getenvInt("STEP_TIMEOUT_CAP_SECONDS", int(cfg.StepTimeoutCap/time.Second))) * time.Second
	cfg.HistoryCap = getenvInt("HISTORY_CAP", cfg.HistoryCap)
	cfg.AlertLogging = getenvBool("ALERT_LOGGING", cfg.AlertLogging)
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
