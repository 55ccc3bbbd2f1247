// Package config loads runtime configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"database"`
	Schedule struct {
		RecomputeCron string `yaml:"recompute_cron"`
		DigestCron    string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Polisher struct {
		Enabled bool          `yaml:"enabled"`
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"polisher"`
	Scoring struct {
		DefaultLanguage string `yaml:"default_language"`
		BusinessType    string `yaml:"business_type"`
		HistoryLimit    int    `yaml:"history_limit"`
	} `yaml:"scoring"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// TelegramEnabled reports whether both bot credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Load reads config from a YAML file, loads an optional .env from the working
// directory, then applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	override := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override("HTTP_ADDR", &cfg.Server.Addr)
	override("DB_DRIVER", &cfg.Database.Driver)
	override("SQLITE_PATH", &cfg.Database.SQLitePath)
	override("DATABASE_URL", &cfg.Database.PostgresURL)
	override("CRON_RECOMPUTE", &cfg.Schedule.RecomputeCron)
	override("CRON_DIGEST", &cfg.Schedule.DigestCron)
	override("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	override("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	override("OPENAI_API_KEY", &cfg.Polisher.APIKey)
	override("POLISHER_BASE_URL", &cfg.Polisher.BaseURL)
	override("LOG_LEVEL", &cfg.Log.Level)
	override("HTTPS_PROXY", &cfg.Proxy)
	if v := os.Getenv("POLISHER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse POLISHER_ENABLED: %w", err)
		}
		cfg.Polisher.Enabled = enabled
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/credbuddy.db"
	}
	if cfg.Schedule.RecomputeCron == "" {
		cfg.Schedule.RecomputeCron = "0 30 1 * * *"
	}
	if cfg.Schedule.DigestCron == "" {
		cfg.Schedule.DigestCron = "0 0 8 * * *"
	}
	if cfg.Polisher.Model == "" {
		cfg.Polisher.Model = "gpt-4o-mini"
	}
	if cfg.Polisher.Timeout == 0 {
		cfg.Polisher.Timeout = 20 * time.Second
	}
	if cfg.Scoring.DefaultLanguage == "" {
		cfg.Scoring.DefaultLanguage = "nl"
	}
	if cfg.Scoring.BusinessType == "" {
		cfg.Scoring.BusinessType = "Unknown"
	}
	if cfg.Scoring.HistoryLimit == 0 {
		cfg.Scoring.HistoryLimit = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	return cfg, nil
}

var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("database.postgres_url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of sqlite, postgres, memory (got %q)", c.Database.Driver)
	}
	if c.Polisher.Enabled && c.Polisher.APIKey == "" {
		return fmt.Errorf("polisher.api_key is required when the polisher is enabled")
	}
	if c.Scoring.DefaultLanguage != "nl" && c.Scoring.DefaultLanguage != "en" {
		return fmt.Errorf("scoring.default_language must be nl or en (got %q)", c.Scoring.DefaultLanguage)
	}
	if c.Scoring.HistoryLimit < 0 {
		return fmt.Errorf("scoring.history_limit must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := cronParser.Parse(c.Schedule.RecomputeCron); err != nil {
		return fmt.Errorf("schedule.recompute_cron: %w", err)
	}
	if _, err := cronParser.Parse(c.Schedule.DigestCron); err != nil {
		return fmt.Errorf("schedule.digest_cron: %w", err)
	}
	return nil
}
