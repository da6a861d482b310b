package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/trainer-bot/pkg/logger"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

const genericUserMessage = "Произошла ошибка. Попробуйте позже"

// Handler turns errors into user-facing messages, logs them and reports serious ones to Sentry.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle returns the message to show the user and whether retrying makes sense.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		metrics.RecordError(appErr.Code, string(appErr.Severity))

		level := slog.LevelError
		if appErr.Severity == SeverityLow {
			level = slog.LevelInfo
		} else if appErr.Severity == SeverityMedium {
			level = slog.LevelWarn
		}

		h.log.Log(ctx, level, "application error",
			slog.String("code", appErr.Code),
			slog.String("message", appErr.Message),
			slog.String("severity", string(appErr.Severity)),
			slog.Bool("retryable", appErr.Retryable),
			slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
		)

		if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
			h.sendToSentry(err)
		}

		userMessage := appErr.UserMessage
		if userMessage == "" {
			userMessage = genericUserMessage
		}

		return userMessage, appErr.Retryable
	}

	metrics.RecordError("unknown", string(SeverityHigh))
	h.log.ErrorContext(ctx, "unknown error",
		slog.String("message", err.Error()),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)

	if h.sentryEnabled {
		h.sendToSentry(err)
	}

	return genericUserMessage, false
}

func (h *Handler) sendToSentry(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			scope.SetTag("code", appErr.Code)
			scope.SetTag("severity", string(appErr.Severity))
		}

		sentry.CaptureException(err)
	})
}
