// Package reminder sends 24-hour and 2-hour session reminders and the trainers' daily agenda.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Proton-105/trainer-bot/internal/dateparse"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/notify"
	"github.com/Proton-105/trainer-bot/internal/repository"
	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

const (
	recipientTrainer = "trainer"
	recipientClient  = "client"
)

// Config tunes the sweep window.
type Config struct {
	// Interval is how often Tick runs; each window spans one interval plus Slack.
	Interval time.Duration
	Slack    time.Duration
	Location *time.Location
}

// Sweeper finds sessions entering a reminder window and notifies their trainer and client.
// Each reminder flag is set right after the send attempt, delivered or not, so a session is
// reminded at most once per threshold.
type Sweeper struct {
	store    *repository.Store
	notifier notify.Notifier
	texts    i18n.Translator
	clock    clockwork.Clock
	cfg      Config
	log      *slog.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(store *repository.Store, notifier notify.Notifier, texts i18n.Translator, clock clockwork.Clock, cfg Config, log *slog.Logger) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	if texts == nil {
		texts = i18n.MustLoad("").Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Sweeper{store: store, notifier: notifier, texts: texts, clock: clock, cfg: cfg, log: log}
}

// Window returns the scheduled_at range a tick at now covers for r.
func (s *Sweeper) Window(r domain.Reminder, now time.Time) (time.Time, time.Time) {
	from := now.Add(r.Lead())
	return from, from.Add(s.cfg.Interval + s.cfg.Slack)
}

// Tick runs one sweep over both thresholds. Failures are logged and collected; one failing
// threshold or session never stops the rest.
func (s *Sweeper) Tick(ctx context.Context) error {
	started := s.clock.Now()
	now := started.UTC()

	var errs []error
	for _, r := range domain.Reminders {
		if err := s.sweep(ctx, r, now); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	metrics.ObserveSweep(s.clock.Since(started), err != nil)
	return err
}

func (s *Sweeper) sweep(ctx context.Context, r domain.Reminder, now time.Time) error {
	from, to := s.Window(r, now)

	due, err := s.store.DueSessions(ctx, r, from, to)
	if err != nil {
		s.log.ErrorContext(ctx, "reminder: select due sessions failed",
			slog.String("threshold", string(r)),
			slog.Any("error", err),
		)
		return fmt.Errorf("select %s reminders: %w", r, err)
	}

	var errs []error
	for _, session := range due {
		s.dispatch(ctx, r, session)

		if _, err := s.store.MarkReminderSent(ctx, session.ID, r); err != nil {
			s.log.ErrorContext(ctx, "reminder: mark sent failed",
				slog.String("threshold", string(r)),
				slog.Int64("session_id", session.ID),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("mark %s reminder for session %d: %w", r, session.ID, err))
		}
	}

	if len(due) > 0 {
		s.log.InfoContext(ctx, "reminder: sweep processed sessions",
			slog.String("threshold", string(r)),
			slog.Int("sessions", len(due)),
		)
	}
	return errors.Join(errs...)
}

func (s *Sweeper) dispatch(ctx context.Context, r domain.Reminder, session domain.DueSession) {
	when := dateparse.Format(session.ScheduledAt, s.cfg.Location)

	if session.TrainerChatID != nil {
		text := s.texts.F("reminder.trainer."+string(r),
			"when", when,
			"client", clientLabel(session),
			"client_id", session.ClientID,
		)
		if comment := strings.TrimSpace(session.Comment); comment != "" {
			text += "\n" + comment
		}
		if notify.Deliver(ctx, s.notifier, s.log, "reminder_"+recipientTrainer, *session.TrainerChatID, text) {
			metrics.RecordReminder(string(r), recipientTrainer)
		}
	}

	if session.ClientChatID != nil {
		text := s.texts.F("reminder.client."+string(r), "when", when)
		if notify.Deliver(ctx, s.notifier, s.log, "reminder_"+recipientClient, *session.ClientChatID, text) {
			metrics.RecordReminder(string(r), recipientClient)
		}
	}
}

func clientLabel(session domain.DueSession) string {
	if name := strings.TrimSpace(session.ClientName); name != "" {
		return name
	}
	return fmt.Sprintf("#%d", session.ClientID)
}
