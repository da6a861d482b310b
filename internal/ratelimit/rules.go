package ratelimit

import (
	"strconv"
	"time"

	"github.com/Proton-105/trainer-bot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether inbound updates are limited at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled && r.config.Limit > 0 && r.config.Window > 0
}

// IsWhitelisted returns true if the chat bypasses rate limits.
func (r *Rules) IsWhitelisted(chatID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == chatID {
			return true
		}
	}
	return false
}

// PerChat returns the limit applied to every chat.
func (r *Rules) PerChat() (int, time.Duration) {
	return r.config.Limit, r.config.Window
}

// ChatKey is the limiter key of a chat.
func ChatKey(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}
