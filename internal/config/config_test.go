package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_SHOP_ID", "shop-42")
	dir := t.TempDir()
	path := writeConfig(t, `
api:
  base_url: "http://backend:8080"
  token: "secret"
  barbershop_id: "${TEST_SHOP_ID}"
  timeout_seconds: 3
booking:
  timezone: "America/Sao_Paulo"
  legacy_manual_instant: true
journal:
  path: "`+filepath.Join(dir, "nested", "journal.db")+`"
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shop-42", cfg.API.BarbershopID)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout())
	assert.True(t, cfg.Booking.LegacyManualInstant)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
	assert.DirExists(t, filepath.Join(dir, "nested"))

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", loc.String())
}

func TestLoad_EnvPath(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
api:
  base_url: "http://backend"
  barbershop_id: "s1"
journal:
  path: "`+filepath.Join(dir, "j.db")+`"
`)
	t.Setenv("BARBERBOOK_CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s1", cfg.API.BarbershopID)
}

func TestLoad_Defaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 14, cfg.CalendarDays())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
	assert.Equal(t, 8090, cfg.HealthPort())
	assert.Equal(t, 9090, cfg.MetricsPort())

	rps, burst := cfg.RateLimit()
	assert.Equal(t, 10.0, rps)
	assert.Equal(t, 5, burst)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: ""
booking:
  timezone: "Mars/Olympus"
logging:
  level: loud
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "api.base_url")
	assert.ErrorContains(t, err, "api.barbershop_id")
	assert.ErrorContains(t, err, "booking.timezone")
	assert.ErrorContains(t, err, "logging.level")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
