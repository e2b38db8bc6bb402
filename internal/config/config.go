package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level
	Port     string `validate:"required,numeric"`

	// StaticDir holds the dashboard assets served at /static.
	StaticDir string `validate:"required"`

	DatasetPath string `validate:"required"`
	ModelPath   string `validate:"required"`

	// History journal backend and locations.
	HistoryBackend    string `validate:"oneof=json sqlite memory"`
	HistoryPath       string `validate:"required_if=HistoryBackend json"`
	HistorySQLitePath string `validate:"required_if=HistoryBackend sqlite"`

	// Model inference guard.
	InferenceTimeout     time.Duration `validate:"gte=0"`
	ModelBreakerFailures int           `validate:"gte=0"`
	ModelBreakerCooldown time.Duration `validate:"gte=0"`

	ForecastMaxDays int `validate:"gte=0"` // 0 = service default

	// Synthetic forecast artifact and its daily refresh time (HH:MM, empty = off).
	SyntheticForecastPath string `validate:"required"`
	SyntheticRefreshAt    string `validate:"omitempty,datetime=15:04"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.StaticDir = getenvDefault("STATIC_DIR", "web/static")

	cfg.DatasetPath = getenvDefault("DATASET_PATH", "data/Real_Combine.csv")
	cfg.ModelPath = getenvDefault("MODEL_PATH", "data/pm25_model.json")

	cfg.HistoryBackend = strings.ToLower(getenvDefault("HISTORY_BACKEND", "json"))
	cfg.HistoryPath = getenvDefault("HISTORY_PATH", "data/history.json")
	cfg.HistorySQLitePath = getenvDefault("HISTORY_SQLITE_PATH", "data/history.db")

	if cfg.InferenceTimeout, err = getenvDuration("INFERENCE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.ModelBreakerFailures, err = getenvInt("MODEL_BREAKER_FAILURES", 5); err != nil {
		return nil, err
	}
	if cfg.ModelBreakerCooldown, err = getenvDuration("MODEL_BREAKER_COOLDOWN", "30s"); err != nil {
		return nil, err
	}
	if cfg.ForecastMaxDays, err = getenvInt("FORECAST_MAX_DAYS", 366); err != nil {
		return nil, err
	}

	cfg.SyntheticForecastPath = getenvDefault("SYNTHETIC_FORECAST_PATH", "web/static/forecast.json")
	cfg.SyntheticRefreshAt = os.Getenv("SYNTHETIC_REFRESH_AT")
	if _, set := os.LookupEnv("SYNTHETIC_REFRESH_AT"); !set {
		cfg.SyntheticRefreshAt = "00:05"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
