// Package config provides configuration loading and validation utilities.
package config

import (
	"time"
)

// Config holds runtime configuration for the trainer bot.
type Config struct {
	AppEnv      string            `mapstructure:"app_env"`
	Bot         BotConfig         `mapstructure:"bot"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Reminder    ReminderConfig    `mapstructure:"reminder"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Server      ServerConfig      `mapstructure:"server"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	State       StateConfig       `mapstructure:"state"`
	Geocode     GeocodeConfig     `mapstructure:"geocode"`
}

// BotConfig configures the Telegram transport.
type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
	WebhookURL    string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookListen string        `mapstructure:"webhook_listen"`
	Timezone      string        `mapstructure:"timezone" validate:"required"`
	Language      string        `mapstructure:"language" validate:"oneof=ru en"`
	PageSize      int           `mapstructure:"page_size" validate:"gte=1,lte=20"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c BotConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite3 postgres"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout" validate:"gt=0"`
}

// RedisConfig enables Redis backed conversation state, idempotency and rate limits.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// ReminderConfig tunes the reminder sweep.
type ReminderConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	Slack       time.Duration `mapstructure:"slack" validate:"gte=0"`
	TickTimeout time.Duration `mapstructure:"tick_timeout" validate:"gt=0"`
	// DigestCron schedules the morning agenda for trainers. Empty disables it.
	DigestCron string `mapstructure:"digest_cron"`
}

// NotifyConfig bounds outbound notifications.
type NotifyConfig struct {
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RatePerSecond    float64       `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst            int           `mapstructure:"burst" validate:"gte=1"`
	// Queue sends relationship notifications through the Redis task queue.
	Queue            bool          `mapstructure:"queue"`
	QueueConcurrency int           `mapstructure:"queue_concurrency" validate:"gte=0"`
	// QueueUnique drops identical queued messages within this window. Zero disables it.
	QueueUnique      time.Duration `mapstructure:"queue_unique" validate:"gte=0"`
}

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// RateLimitConfig limits inbound updates per chat.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Limit     int           `mapstructure:"limit" validate:"gte=1"`
	Window    time.Duration `mapstructure:"window" validate:"gt=0"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// IdempotencyConfig configures update deduplication.
type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// StateConfig configures conversation state retention.
type StateConfig struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// GeocodeConfig configures city lookups.
type GeocodeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url" validate:"required_if=Enabled true"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	Limit    int           `mapstructure:"limit" validate:"gte=1,lte=10"`
}
