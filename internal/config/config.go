package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither an argument nor BARBERBOOK_CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

type Config struct {
	API struct {
		BaseURL         string  `yaml:"base_url"`
		Token           string  `yaml:"token"`
		BarbershopID    string  `yaml:"barbershop_id"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		Timezone              string `yaml:"timezone"`
		LegacyManualInstant   bool   `yaml:"legacy_manual_instant"`
		SessionTimeoutMinutes int    `yaml:"session_timeout_minutes"`
		CalendarDays          int    `yaml:"calendar_days"`
	} `yaml:"booking"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads the YAML config at path. Variables from a .env file next to the
// working directory are loaded first so ${VAR} placeholders can use them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BARBERBOOK_CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "data/barberbook.db"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings every binary needs.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.BarbershopID == "" {
		errs = append(errs, errors.New("api.barbershop_id is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) HTTPTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) RateLimit() (rps float64, burst int) {
	rps, burst = c.API.RateLimitRPS, c.API.RateLimitBurst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return rps, burst
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Booking.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}

// CalendarDays is how many days ahead the storefront date picker offers.
func (c *Config) CalendarDays() int {
	if c.Booking.CalendarDays <= 0 {
		return 14
	}
	return c.Booking.CalendarDays
}

// Location is the zone booking wall-clock times are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("booking.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || c.Logging.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) HealthPort() int {
	if c.Monitoring.HealthCheckPort <= 0 {
		return 8090
	}
	return c.Monitoring.HealthCheckPort
}

func (c *Config) MetricsPort() int {
	if c.Monitoring.PrometheusPort <= 0 {
		return 9090
	}
	return c.Monitoring.PrometheusPort
}
