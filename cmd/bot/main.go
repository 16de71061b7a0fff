package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"birthday-app-backend/internal/bot"
	"birthday-app-backend/internal/common/config"
	"birthday-app-backend/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init("birthday-app-bot", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bot.New(ctx, cfg, zlog.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start bot")
	}

	mode := "polling"
	if cfg.Telegram.UseWebhook {
		mode = "webhook"
	}
	logger.Info().Str("mode", mode).Msg("Bot starting")

	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Bot stopped with error")
	}

	logger.Info().Msg("Bot exited")
}
