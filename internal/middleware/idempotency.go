package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	"github.com/Proton-105/trainer-bot/internal/idempotency"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

// Idempotency runs the handler at most once per Telegram update id, so a redelivered
// "/paid" does not record the payment twice. A handler error leaves no record and the
// redelivery runs again.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			updateID := c.Update().ID
			if updateID == 0 {
				return next(c)
			}

			ctx := handlers.Context(c)
			result, err := manager.Execute(ctx, idempotency.UpdateKey(updateID), ttl, func(context.Context) (interface{}, error) {
				return nil, next(c)
			})

			switch {
			case errors.Is(err, idempotency.ErrRequestInProgress):
				skipDuplicate(ctx, c, log, updateID, "in_progress")
				return nil
			case err != nil:
				return err
			case result != nil && result.FromCache:
				skipDuplicate(ctx, c, log, updateID, "handled")
			}
			return nil
		}
	}
}

// skipDuplicate clears the button spinner of a repeated callback and records the skip.
func skipDuplicate(ctx context.Context, c telebot.Context, log *slog.Logger, updateID int, reason string) {
	action := ActionName(c)
	metrics.RecordDuplicateUpdate(action, reason)
	log.InfoContext(ctx, "duplicate update skipped",
		slog.Int("update_id", updateID),
		slog.String("action", action),
		slog.String("reason", reason),
	)

	if c.Callback() != nil {
		_ = c.Respond()
	}
}
