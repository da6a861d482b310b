package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/trainer-bot/internal/notify"
)

const digestBatch = 100

// Digest sends every trainer with sessions today a list of them. It is meant to run once a
// morning from the scheduler.
func (s *Sweeper) Digest(ctx context.Context) error {
	local := s.clock.Now().In(s.cfg.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)

	var (
		errs []error
		sent int
	)
	for offset := 0; ; offset += digestBatch {
		trainers, err := s.store.ListTrainers(ctx, "", digestBatch, offset)
		if err != nil {
			return fmt.Errorf("digest: list trainers: %w", err)
		}

		for _, t := range trainers {
			sessions, err := s.store.TrainerSchedule(ctx, t.ID, dayStart, dayEnd)
			if err != nil {
				errs = append(errs, fmt.Errorf("digest: schedule of trainer %d: %w", t.ID, err))
				continue
			}
			if len(sessions) == 0 {
				continue
			}

			var b strings.Builder
			b.WriteString(s.texts.F("reminder.digest.header", "count", len(sessions)))
			for _, item := range sessions {
				b.WriteString("\n")
				b.WriteString(s.texts.F("reminder.digest.line",
					"time", item.ScheduledAt.In(s.cfg.Location).Format("15:04"),
					"client", item.ClientName,
					"id", item.ID,
				))
			}

			if notify.Deliver(ctx, s.notifier, s.log, "digest", t.ChatID, b.String()) {
				sent++
			}
		}

		if len(trainers) < digestBatch {
			break
		}
	}

	s.log.InfoContext(ctx, "reminder: daily digest sent", slog.Int("trainers", sent))
	return errors.Join(errs...)
}
