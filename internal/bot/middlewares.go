package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	errors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/middleware"
	"github.com/Proton-105/trainer-bot/internal/relationship"
	"github.com/Proton-105/trainer-bot/internal/trainer"
	"github.com/Proton-105/trainer-bot/pkg/logger"
)

const genericUserMessage = "⚠️ Что-то пошло не так. Попробуйте позже."

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					ctx := handlers.Context(c)
					log.ErrorContext(ctx, "panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := genericUserMessage
					if errHandler != nil {
						appErr := errors.NewDatabaseError(fmt.Errorf("panic recovered: %v", r))
						appErr.Retryable = false
						if msg, _ := errHandler.Handle(ctx, appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.ErrorContext(ctx, "failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// CorrelationMiddleware gives every update a context carrying a fresh correlation id.
func CorrelationMiddleware(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		handlers.SetContext(c, logger.WithCorrelationID(context.Background(), ""))
		return next(c)
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := "Произошла ошибка. Попробуйте позже"
			if errHandler != nil {
				if msg, _ := errHandler.Handle(handlers.Context(c), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				if c.Callback() != nil {
					_ = c.Respond()
				}
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			ctx := handlers.Context(c)
			chatID := int64(0)
			if c != nil && c.Chat() != nil {
				chatID = c.Chat().ID
			}
			action := middleware.ActionName(c)
			correlationID := logger.CorrelationIDFromContext(ctx)

			log.DebugContext(ctx, "handling update",
				slog.Int64("chat_id", chatID),
				slog.String("action", action),
				slog.String("correlation_id", correlationID),
			)
			err := next(c)
			log.InfoContext(ctx, "handled update",
				slog.Int64("chat_id", chatID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.String("correlation_id", correlationID),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// ActorMiddleware resolves the chat to its trainer and client records and its language.
func ActorMiddleware(trainers *trainer.Service, relations *relationship.Service, texts *i18n.Manager, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if c == nil || c.Chat() == nil {
				return next(c)
			}

			ctx := handlers.Context(c)
			actor := &handlers.Actor{ChatID: c.Chat().ID}

			lang := ""
			if sender := c.Sender(); sender != nil {
				lang = sender.LanguageCode
				actor.Name = sender.FirstName
			}
			actor.T = texts.Translator(lang)

			if trainers != nil {
				profile, err := trainers.ByChatID(ctx, actor.ChatID)
				switch {
				case err == nil:
					actor.Trainer = profile
				case !stdErrors.Is(err, errors.ErrNotFound):
					log.ErrorContext(ctx, "failed to resolve trainer", slog.Int64("chat_id", actor.ChatID), slog.Any("error", err))
					return err
				}
			}

			if relations != nil {
				client, err := relations.ClientByChatID(ctx, actor.ChatID)
				switch {
				case err == nil:
					actor.Client = client
				case !stdErrors.Is(err, errors.ErrNotFound):
					log.ErrorContext(ctx, "failed to resolve client", slog.Int64("chat_id", actor.ChatID), slog.Any("error", err))
					return err
				}
			}

			handlers.SetActor(c, actor)
			return next(c)
		}
	}
}
