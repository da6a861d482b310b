package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"bot.token":                     "",
	"bot.mode":                      "polling",
	"bot.poll_timeout":              "10s",
	"bot.webhook_url":               "",
	"bot.webhook_listen":            ":8443",
	"bot.timezone":                  "Europe/Moscow",
	"bot.language":                  "ru",
	"bot.page_size":                 8,
	"database.driver":               "sqlite3",
	"database.dsn":                  "trainer_bot.db",
	"database.max_open_conns":       1,
	"database.max_idle_conns":       1,
	"database.conn_max_lifetime":    "0s",
	"database.ping_timeout":         "5s",
	"redis.enabled":                 false,
	"redis.addr":                    "localhost:6379",
	"redis.password":                "",
	"redis.db":                      0,
	"redis.pool_size":               10,
	"redis.min_idle_conns":          2,
	"redis.pool_timeout":            "4s",
	"redis.idle_timeout":            "5m",
	"redis.max_retries":             3,
	"reminder.interval":             "60s",
	"reminder.slack":                "1m",
	"reminder.tick_timeout":         "45s",
	"reminder.digest_cron":          "0 8 * * *",
	"notify.timeout":                "10s",
	"notify.rate_per_second":        25,
	"notify.burst":                  5,
	"notify.queue":                  false,
	"notify.queue_concurrency":      2,
	"notify.queue_unique":           "1m",
	"logger.level":                  "info",
	"logger.format":                 "json",
	"logger.file":                   "",
	"logger.max_size_mb":            50,
	"logger.max_backups":            5,
	"logger.max_age_days":           14,
	"sentry.enabled":                false,
	"sentry.dsn":                    "",
	"sentry.environment":            "",
	"sentry.sample_rate":            1.0,
	"server.port":                   "8080",
	"server.shutdown_timeout":       "15s",
	"rate_limit.enabled":            true,
	"rate_limit.limit":              30,
	"rate_limit.window":             "1m",
	"rate_limit.whitelist":          []int64{},
	"idempotency.ttl":               "10m",
	"state.ttl":                     "1h",
	"state.cleanup_interval":        "5m",
	"geocode.enabled":               false,
	"geocode.base_url":              "https://geocoding-api.open-meteo.com/v1/search",
	"geocode.timeout":               "5s",
	"geocode.cache_ttl":             "24h",
	"geocode.limit":                 5,
}

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
// A missing config file is not an error: defaults plus environment are enough to run.
func Load() (*Config, *viper.Viper, error) {
	// .env files are optional
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-decodes the configuration on every file change and passes valid results to onChange.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		log.Info("config reloaded", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
