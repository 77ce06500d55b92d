package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"example.com/expense-tracker/backend/internal/config"
)

var flagEnvFile string

var rootCmd = &cobra.Command{
	Use:           "trackerctl",
	Short:         "Expense tracker maintenance CLI",
	Long:          "Apply schema migrations and run budget reconciliation outside the HTTP server.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to .env file (overrides ENV_FILE)")
}

// loadConfig читает конфигурацию так же, как сервер.
func loadConfig() (config.Config, *slog.Logger, error) {
	if flagEnvFile != "" {
		if err := os.Setenv("ENV_FILE", flagEnvFile); err != nil {
			return config.Config{}, nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
