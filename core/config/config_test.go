package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Report:   ReportConfig{ChannelID: "@reports"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = " Polling "
	cfg.RateLimit.ExcludeUpdates = []string{" Callback "}

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
	assert.False(t, cfg.Database.Enabled())
	assert.Empty(t, cfg.Database.Port)
}

func TestNormalizeRequiresTokenAndChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.ErrorContains(t, Normalize(cfg), "token")

	cfg = validConfig()
	cfg.Report.ChannelID = "  "
	assert.ErrorContains(t, Normalize(cfg), "channel_id")
}

func TestNormalizeWebhookNeedsListener(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook.URL = "https://example.org/hook"
	assert.ErrorContains(t, Normalize(cfg), "webhook.listen")

	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	assert.NoError(t, Normalize(cfg))
}

func TestNormalizeRejectsUnknownValues(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "push"
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"photo"}
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeDatabaseDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = "db"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
}

func TestLoadMergesYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
telegram:
  token: from-file
report:
  channel_id: "-100200300"
survey:
  prompts: ["Вынесли мусор?"]
  locations: ["1-1", "1-2"]
metrics:
  listen: ":9100"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "-100200300", cfg.Report.ChannelID)
	assert.Equal(t, []string{"Вынесли мусор?"}, cfg.Survey.Prompts)
	assert.Equal(t, []string{"1-1", "1-2"}, cfg.Survey.Locations)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "t")
	t.Setenv("CHANNEL_ID", "@ch")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "@ch", cfg.Report.ChannelID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}
