package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"HTTP_ADDR", "DB_DRIVER", "SQLITE_PATH", "DATABASE_URL", "CRON_RECOMPUTE", "CRON_DIGEST",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "OPENAI_API_KEY", "POLISHER_BASE_URL",
	"POLISHER_ENABLED", "LOG_LEVEL", "HTTPS_PROXY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/credbuddy.db", cfg.Database.SQLitePath)
	assert.Equal(t, "0 30 1 * * *", cfg.Schedule.RecomputeCron)
	assert.Equal(t, "nl", cfg.Scoring.DefaultLanguage)
	assert.Equal(t, "Unknown", cfg.Scoring.BusinessType)
	assert.Equal(t, 30, cfg.Scoring.HistoryLimit)
	assert.Equal(t, 20*time.Second, cfg.Polisher.Timeout)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: ":9000"
database:
  driver: postgres
  postgres_url: postgres://file
polisher:
  enabled: true
  timeout: 5s
scoring:
  default_language: en
  history_limit: 12
log:
  format: text
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://env", cfg.Database.PostgresURL)
	assert.True(t, cfg.Polisher.Enabled)
	assert.Equal(t, "sk-test", cfg.Polisher.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Polisher.Timeout)
	assert.Equal(t, "en", cfg.Scoring.DefaultLanguage)
	assert.Equal(t, 12, cfg.Scoring.HistoryLimit)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PolisherEnabledEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLISHER_ENABLED", "yes please")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("POLISHER_ENABLED", "true")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Polisher.Enabled)
	assert.Error(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_DRIVER=memory\nHTTP_ADDR=:7000\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Unsetenv("DB_DRIVER"))
	t.Setenv("HTTP_ADDR", ":6000")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, ":6000", cfg.Server.Addr, "process env wins over .env")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"memory driver", func(c *Config) { c.Database.Driver = DriverMemory }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }, false},
		{"sqlite without path", func(c *Config) { c.Database.SQLitePath = "" }, false},
		{"polisher without key", func(c *Config) { c.Polisher.Enabled = true }, false},
		{"polisher with key", func(c *Config) { c.Polisher.Enabled = true; c.Polisher.APIKey = "k" }, true},
		{"bad language", func(c *Config) { c.Scoring.DefaultLanguage = "de" }, false},
		{"negative history", func(c *Config) { c.Scoring.HistoryLimit = -1 }, false},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }, false},
		{"five-field cron", func(c *Config) { c.Schedule.RecomputeCron = "30 1 * * *" }, false},
		{"descriptor cron", func(c *Config) { c.Schedule.DigestCron = "@daily" }, true},
		{"garbage cron", func(c *Config) { c.Schedule.DigestCron = "sometimes" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if tc.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	log := NewLogger("debug", "json")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLogger("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}
