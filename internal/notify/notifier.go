// Package notify delivers out-of-band messages to Telegram chats.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

// Notifier sends a plain text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string, opts ...any) error
}

// Sender is the subset of *telebot.Bot used for delivery.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Options bounds delivery.
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// TelegramNotifier throttles, times out and retries sends through the bot API.
type TelegramNotifier struct {
	sender  Sender
	limiter *rate.Limiter
	timeout time.Duration
	log     *slog.Logger
}

// NewTelegramNotifier wraps sender with the given limits.
func NewTelegramNotifier(sender Sender, opts Options, log *slog.Logger) *TelegramNotifier {
	if log == nil {
		log = slog.Default()
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 25
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &TelegramNotifier{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		timeout: opts.Timeout,
		log:     log,
	}
}

// Notify sends text to chatID. Failures are returned as delivery errors.
func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, text string, opts ...any) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return apperrors.WithRetry(ctx, func() error {
		if err := n.limiter.Wait(ctx); err != nil {
			return apperrors.NewDeliveryError(chatID, false, err)
		}
		return n.send(ctx, chatID, text, opts)
	})
}

func (n *TelegramNotifier) send(ctx context.Context, chatID int64, text string, opts []any) error {
	done := make(chan error, 1)
	go func() {
		_, err := n.sender.Send(telebot.ChatID(chatID), text, opts...)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return apperrors.NewDeliveryError(chatID, false, ctx.Err())
	case err := <-done:
		if err == nil {
			return nil
		}
		return classify(chatID, err)
	}
}

// floodWait carries the server's retry hint.
type floodWait struct {
	error
	wait time.Duration
}

func (f floodWait) RetryAfter() time.Duration { return f.wait }
func (f floodWait) Unwrap() error             { return f.error }

func classify(chatID int64, err error) error {
	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return apperrors.NewDeliveryError(chatID, true, floodWait{error: err, wait: time.Duration(flood.RetryAfter) * time.Second})
	}

	// blocked bots, deleted chats and bad requests will not heal on retry
	var apiErr *telebot.Error
	if errors.As(err, &apiErr) || strings.HasPrefix(err.Error(), "telegram: ") {
		return apperrors.NewDeliveryError(chatID, false, err)
	}

	return apperrors.NewDeliveryError(chatID, true, err)
}

// Deliver sends text and swallows the failure after logging and counting it.
// It reports whether the message went out.
func Deliver(ctx context.Context, n Notifier, log *slog.Logger, kind string, chatID int64, text string, opts ...any) bool {
	if n == nil {
		return false
	}
	if err := n.Notify(ctx, chatID, text, opts...); err != nil {
		metrics.RecordNotificationFailure(kind)
		if log != nil {
			log.WarnContext(ctx, "notification not delivered",
				slog.String("kind", kind),
				slog.Int64("chat_id", chatID),
				slog.Any("error", err),
			)
		}
		return false
	}
	return true
}
