// Package app wires the pieces shared by the admin console and the storefront.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"barberbook/internal/auth"
	"barberbook/internal/barberapi"
	"barberbook/internal/booking"
	"barberbook/internal/config"
	"barberbook/internal/journal"
	"barberbook/internal/metrics"
	"barberbook/internal/monitor"
	"barberbook/internal/notify"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the long-lived dependencies of one process.
type App struct {
	Config    *config.Config
	Location  *time.Location
	Client    *barberapi.Client
	Redis     *redis.Client
	Journal   *journal.Journal
	Bus       *notify.Bus
	Submitter *booking.Submitter
	Logger    *zerolog.Logger
}

// NewLogger builds the console logger used by both binaries.
func NewLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

// New connects the backend client, the optional Redis cache and the journal.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	rps, burst := cfg.RateLimit()
	client := barberapi.NewClient(cfg.API.BaseURL,
		auth.NewSession(cfg.API.Token, cfg.API.BarbershopID),
		barberapi.WithTimeout(cfg.HTTPTimeout()),
		barberapi.WithRateLimit(rps, burst),
		barberapi.WithLogger(logger),
	)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	bus := notify.NewBus()
	bus.Subscribe("", notify.LogHandler(logger))

	submitter := booking.NewSubmitter(client, j, bus, booking.SubmitterConfig{
		Location:            loc,
		LegacyManualInstant: cfg.Booking.LegacyManualInstant,
	}, logger)

	return &App{
		Config:    cfg,
		Location:  loc,
		Client:    client,
		Redis:     rdb,
		Journal:   j,
		Bus:       bus,
		Submitter: submitter,
		Logger:    logger,
	}, nil
}

// StartMonitoring runs the health server and, when enabled, the metrics server.
func (a *App) StartMonitoring(ctx context.Context) {
	checks := []monitor.Check{
		{Name: "journal", Ping: a.Journal.Ping},
		{Name: "booking api", Ping: a.Client.HealthCheck},
	}
	if a.Redis != nil {
		checks = append(checks, monitor.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}})
	}
	go monitor.StartHealthServer(ctx, a.Config.HealthPort(), a.Logger, checks...)

	if a.Config.Monitoring.PrometheusEnabled {
		metrics.Register()
		go monitor.StartMetricsServer(ctx, a.Config.MetricsPort(), a.Logger)
	}
}

// Close releases the journal and the Redis connection.
func (a *App) Close() {
	if err := a.Journal.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("close journal")
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
