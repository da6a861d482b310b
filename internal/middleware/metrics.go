package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(ActionName(c), status, time.Since(start))

		return err
	}
}

// ActionName labels an update with a bounded set of values: the command name, the callback
// unique, or "text" for form input.
func ActionName(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		if unique, _, err := keyboard.DecodeCallback(cb.Data); err == nil {
			return "cb:" + unique
		}
		return "cb:unknown"
	}

	if cmd, ok := command.Parse(c.Text()); ok {
		if cmd.Name.Known() {
			return string(cmd.Name)
		}
		return "unknown"
	}

	if c.Text() != "" {
		return "text"
	}

	return "unknown"
}
