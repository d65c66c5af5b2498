package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"barberbook/internal/app"
	"barberbook/internal/config"
	"barberbook/internal/storefront"
)

func main() {
	logger := app.NewLogger()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logger.Level(cfg.LogLevel())

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	a, err := app.New(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init error")
	}
	defer a.Close()

	b, err := storefront.New(cfg.Telegram.BotToken, cfg.Telegram.Debug, storefront.Options{
		Reference:      a.Client,
		Fetcher:        a.Client,
		Submitter:      a.Submitter,
		Bus:            a.Bus,
		Location:       a.Location,
		CalendarDays:   cfg.CalendarDays(),
		SessionTimeout: cfg.SessionTimeout(),
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.LoadCatalog(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load services and barbers")
	}

	a.StartMonitoring(ctx)

	logger.Info().Msg("storefront bot started")
	b.Start(ctx)
}
