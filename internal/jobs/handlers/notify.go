// Package handlers processes queued background tasks.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/jobs"
	"github.com/Proton-105/trainer-bot/internal/notify"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

// NotifyHandler delivers queued chat messages.
type NotifyHandler struct {
	notifier notify.Notifier
	log      *slog.Logger
}

// NewNotifyHandler constructs a NotifyHandler sending through notifier.
func NewNotifyHandler(notifier notify.Notifier, log *slog.Logger) *NotifyHandler {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyHandler{notifier: notifier, log: log}
}

// ProcessTask implements asynq.Handler. Permanent delivery failures skip asynq's retries.
func (h *NotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := jobs.DecodeNotify(t)
	if err != nil {
		h.log.ErrorContext(ctx, "notify task: failed to decode payload",
			slog.String("task_type", t.Type()),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	var opts []any
	if payload.Markup != nil {
		opts = append(opts, payload.Markup)
	}

	err = h.notifier.Notify(ctx, payload.ChatID, payload.Text, opts...)
	if err == nil {
		return nil
	}

	metrics.RecordNotificationFailure(payload.Kind)
	h.log.WarnContext(ctx, "notify task: delivery failed",
		slog.Int64("chat_id", payload.ChatID),
		slog.String("kind", payload.Kind),
		slog.Bool("retryable", apperrors.IsRetryable(err)),
		slog.Any("error", err),
	)

	if !apperrors.IsRetryable(err) {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}
