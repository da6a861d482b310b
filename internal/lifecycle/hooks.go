package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Hook releases one resource, such as the database handle or the queue client.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// run executes the hook unless ctx already expired. The returned error carries the hook name.
func (h Hook) run(ctx context.Context, log *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		log.Warn("shutdown hook skipped", slog.String("hook", h.Name), slog.Any("error", err))
		return fmt.Errorf("%s: %w", h.Name, err)
	}

	start := time.Now()
	if err := h.Fn(ctx); err != nil {
		log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
		return fmt.Errorf("%s: %w", h.Name, err)
	}
	log.Info("shutdown hook completed", slog.String("hook", h.Name), slog.Duration("elapsed", time.Since(start)))
	return nil
}
