package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cleaner drops conversations that were abandoned for longer than ttl.
type Cleaner struct {
	storage Storage
	clock   clockwork.Clock
	ttl     time.Duration
	log     *slog.Logger
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, clock clockwork.Clock, ttl time.Duration, log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Cleaner{
		storage: storage,
		clock:   clock,
		ttl:     ttl,
		log:     log,
	}
}

// Cleanup removes every stale state and reports how many were cleared.
func (c *Cleaner) Cleanup(ctx context.Context) (int, error) {
	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		return 0, err
	}

	now := c.clock.Now()
	cleared := 0
	for _, st := range states {
		if ctx.Err() != nil {
			return cleared, ctx.Err()
		}
		if st == nil || now.Sub(st.UpdatedAt) <= c.ttl {
			continue
		}

		if err := c.storage.ClearState(ctx, st.ChatID); err != nil {
			c.log.Error("state cleaner failed to clear state", slog.Int64("chat_id", st.ChatID), slog.Any("error", err))
			continue
		}
		cleared++
		c.log.Info("conversation expired", slog.Int64("chat_id", st.ChatID), slog.String("state", string(st.CurrentState)))
	}

	return cleared, nil
}
