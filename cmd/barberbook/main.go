package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"barberbook/internal/app"
	"barberbook/internal/config"
	"barberbook/internal/console"
	"barberbook/internal/export"
)

func main() {
	logger := app.NewLogger()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logger.Level(cfg.LogLevel())

	a, err := app.New(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init error")
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.StartMonitoring(ctx)

	c := console.New(console.Options{
		Reference: a.Client,
		Fetcher:   a.Client,
		Submitter: a.Submitter,
		Exporter:  export.NewExporter(a.Journal, a.Client, a.Location, &logger),
		ExportDir: cfg.Export.Dir,
		Bus:       a.Bus,
		Location:  a.Location,
		Logger:    &logger,
	}, os.Stdout)

	if err := c.LoadCatalog(ctx); err != nil {
		logger.Error().Err(err).Msg("could not load services and barbers, use 'reload' to retry")
	}

	if err := c.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("console stopped")
	}
}
