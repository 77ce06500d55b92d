package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/expense-tracker/backend/internal/config"
	"example.com/expense-tracker/backend/internal/database"
	"example.com/expense-tracker/backend/internal/notifications"
	"example.com/expense-tracker/backend/internal/scheduler"
	"example.com/expense-tracker/backend/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepTimeout    = 5 * time.Minute
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := database.MigrateUp(cfg.Database); err != nil {
		logger.Error("failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	hub := notifications.NewHub()
	publishers := notifications.Multi{hub}

	if cfg.Broker.URL != "" {
		broker, err := notifications.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			logger.Error("failed to connect to broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if err := broker.Close(); err != nil {
				logger.Warn("broker close failed", slog.String("error", err.Error()))
			}
		}()
		publishers = append(publishers, broker)
	}

	service := server.NewTracker(cfg.Ledger, logger, db, publishers)

	var sweeps *scheduler.Scheduler
	if cfg.Scheduler.ReconcileCron != "" {
		sweeps, err = scheduler.New(cfg.Scheduler.ReconcileCron, service, logger, sweepTimeout)
		if err != nil {
			logger.Error("failed to schedule reconcile sweep", slog.String("error", err.Error()))
			os.Exit(1)
		}
		sweeps.Start()
		logger.Info("reconcile sweep scheduled",
			slog.String("schedule", cfg.Scheduler.ReconcileCron),
			slog.Time("next", sweeps.Next()),
		)
	}

	e := server.New(cfg, logger, db, service, hub)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sweeps != nil {
		sweeps.Stop(shutdownCtx)
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
