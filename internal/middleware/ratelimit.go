package middleware

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-chat rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	texts   *i18n.Manager
	clock   clockwork.Clock
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, texts *i18n.Manager, clock clockwork.Clock, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		texts:   texts,
		clock:   clock,
		log:     log,
	}
}

// Handle returns a telebot middleware that enforces per-chat rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		chat := c.Chat()
		if chat == nil {
			return next(c)
		}

		chatID := chat.ID
		if m.rules.IsWhitelisted(chatID) {
			return next(c)
		}

		limit, window := m.rules.PerChat()
		result, err := m.limiter.Check(context.Background(), ratelimit.ChatKey(chatID), limit, window)
		switch {
		case err == nil && result != nil && result.Allowed:
			return next(c)
		case err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded):
			m.log.Warn("rate limiter error", slog.Int64("chat_id", chatID), slog.Any("error", err))
			return next(c)
		}

		wait := result.RetryAfter(m.clock.Now())
		m.log.Info("rate limit exceeded", slog.Int64("chat_id", chatID), slog.Duration("retry_after", wait))

		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: m.message(c, wait)})
		}
		return c.Send(m.message(c, wait))
	}
}

func (m *RateLimitMiddleware) message(c telebot.Context, wait time.Duration) string {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	lang := ""
	if sender := c.Sender(); sender != nil {
		lang = sender.LanguageCode
	}
	return m.texts.Translator(lang).F("common.rate_limited", "seconds", seconds)
}
