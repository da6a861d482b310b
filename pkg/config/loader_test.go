package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, env, body string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", env+".yaml"), []byte(body), 0o600))
	t.Chdir(dir)
	t.Setenv("APP_ENV", env)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	writeConfig(t, "test", `
bot:
  token: from-file
  timezone: UTC
reminder:
  interval: 30s
database:
  driver: postgres
  dsn: postgres://localhost/trainer
`)
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, v, err := Load()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.Equal(t, 30*time.Second, cfg.Reminder.Interval)
	assert.Equal(t, time.Minute, cfg.Reminder.Slack)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, time.UTC, cfg.Bot.Location())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "nowhere")
	t.Setenv("BOT_TOKEN", "token")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 60*time.Second, cfg.Reminder.Interval)
	assert.Equal(t, "ru", cfg.Bot.Language)
}

func TestLoad_ValidationFails(t *testing.T) {
	writeConfig(t, "broken", `
bot:
  token: ""
`)
	t.Setenv("BOT_TOKEN", "")

	_, _, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLocation_InvalidFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, BotConfig{Timezone: "Mars/Olympus"}.Location())
}
