// Package main is the entry point for the contest Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/contest-bot/internal/bot"
	"gitlab.com/yelinaung/contest-bot/internal/config"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	"gitlab.com/yelinaung/contest-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("contest-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTelExporter, cfg.OTelProtocol, version)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	contestBot, err := bot.New(cfg, pool)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	logger.Log.Info().Str("version", version).Msg("Starting contest bot")
	contestBot.Start(ctx)
}
