package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/pm25-dashboard/internal/airquality"
	httpapi "github.com/i474232898/pm25-dashboard/internal/api/http"
	"github.com/i474232898/pm25-dashboard/internal/config"
	"github.com/i474232898/pm25-dashboard/internal/dataset"
	"github.com/i474232898/pm25-dashboard/internal/logging"
	"github.com/i474232898/pm25-dashboard/internal/model"
	"github.com/i474232898/pm25-dashboard/internal/scheduler"
	"github.com/i474232898/pm25-dashboard/internal/store"
	"github.com/i474232898/pm25-dashboard/internal/synthetic"
)

const appName = "pm25-dashboard"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg, appName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// run owns every resource opened at startup, so deferred cleanup happens on
// both the error and the shutdown path.
func run(cfg *config.AppConfig, logger *slog.Logger) error {
	// Dataset and model must load before the server accepts requests.
	table, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return fmt.Errorf("dataset load failed: %w", err)
	}
	logger.Info("dataset loaded", "path", cfg.DatasetPath, "rows", len(table.Rows()), "dropped", table.Dropped())

	mdl, err := model.Load(cfg.ModelPath, model.BreakerConfig{
		ConsecutiveFailures: uint32(cfg.ModelBreakerFailures),
		Cooldown:            cfg.ModelBreakerCooldown,
	}, logger)
	if err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}
	logger.Info("model loaded", "path", cfg.ModelPath, "kind", mdl.Kind())

	history, err := store.Open(store.Options{
		Backend:    cfg.HistoryBackend,
		JSONPath:   cfg.HistoryPath,
		SQLitePath: cfg.HistorySQLitePath,
	}, logger)
	if err != nil {
		return fmt.Errorf("history store open failed: %w", err)
	}
	defer func() {
		if err := history.Close(); err != nil {
			logger.Error("history store close failed", "err", err)
		}
	}()

	// Core service shared by every handler.
	service := airquality.NewService(table, mdl, history, logger,
		airquality.WithInferenceTimeout(cfg.InferenceTimeout),
		airquality.WithMaxForecastDays(cfg.ForecastMaxDays),
	)

	// Keeps the static synthetic forecast dated from today.
	sched := scheduler.New(cfg.SyntheticForecastPath, cfg.SyntheticRefreshAt, synthetic.DefaultParams(), logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Options{
		AppName:   appName,
		Logger:    logger,
		AccessLog: true,
	})

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.StaticDir)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "err", err)
	}
	return nil
}
