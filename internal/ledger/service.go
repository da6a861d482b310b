// Package ledger records training sessions and payments for a trainer's clients and
// reports on them.
package ledger

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/trainer-bot/internal/dateparse"
	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/repository"
)

const (
	// DefaultDays is the reporting window when none is given.
	DefaultDays = 30
	maxDays     = 366

	maxCommentLen = 500
)

// Service provides session and payment operations.
type Service struct {
	store *repository.Store
	clock clockwork.Clock
	loc   *time.Location
	log   *slog.Logger
}

// NewService constructs a new Service instance. loc is the zone users type dates in.
func NewService(store *repository.Store, clock clockwork.Clock, loc *time.Location, log *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, clock: clock, loc: loc, log: log}
}

// Location is the zone dates are parsed and printed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// ParseWhen reads a user-typed date relative to now.
func (s *Service) ParseWhen(text string) (time.Time, error) {
	return dateparse.Parse(text, s.clock.Now(), s.loc)
}

// CreateSession plans a session for one of the trainer's approved clients.
func (s *Service) CreateSession(ctx context.Context, trainerID, clientID int64, scheduledAt time.Time, comment string) (*domain.Session, error) {
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > maxCommentLen {
		return nil, apperrors.NewInvalidInputError("Комментарий слишком длинный")
	}
	if scheduledAt.IsZero() {
		return nil, apperrors.NewInvalidInputError("Не указана дата тренировки")
	}

	session := &domain.Session{
		ClientID:    clientID,
		ScheduledAt: scheduledAt,
		Comment:     comment,
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := rosterClient(ctx, tx, trainerID, clientID); err != nil {
			return err
		}
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, repository.AppError("session", err)
	}

	s.log.InfoContext(ctx, "session planned",
		slog.Int64("session_id", session.ID),
		slog.Int64("client_id", clientID),
		slog.Time("scheduled_at", session.ScheduledAt),
	)
	return session, nil
}

// CompleteSession marks a session done. Completing a completed session succeeds.
func (s *Service) CompleteSession(ctx context.Context, trainerID, sessionID int64) (*domain.Session, error) {
	var session *domain.Session

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if session, err = tx.SessionByID(ctx, sessionID); err != nil {
			return repository.AppError("session", err)
		}
		if _, err := rosterClient(ctx, tx, trainerID, session.ClientID); err != nil {
			return err
		}
		if session.Status == domain.SessionCompleted {
			return nil
		}
		session.Status = domain.SessionCompleted
		return tx.CompleteSession(ctx, sessionID)
	})
	if err != nil {
		return nil, repository.AppError("session", err)
	}
	return session, nil
}

// PaymentResult is a recorded payment with the balance it produced.
type PaymentResult struct {
	Payment *domain.Payment
	Balance decimal.Decimal
}

// RecordPayment appends a payment and moves the client's balance by the same amount in
// one transaction. Negative amounts record charges.
func (s *Service) RecordPayment(ctx context.Context, trainerID, clientID int64, amount decimal.Decimal, note string) (*PaymentResult, error) {
	if amount.IsZero() {
		return nil, apperrors.NewInvalidInputError("Сумма не может быть нулевой")
	}
	if !amount.Truncate(2).Equal(amount) {
		return nil, apperrors.NewInvalidInputError("Не больше двух знаков после запятой")
	}
	note = strings.TrimSpace(note)
	if len([]rune(note)) > maxCommentLen {
		return nil, apperrors.NewInvalidInputError("Комментарий слишком длинный")
	}

	result := &PaymentResult{
		Payment: &domain.Payment{
			ClientID:   clientID,
			Amount:     amount,
			OccurredAt: s.clock.Now(),
			Note:       note,
		},
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		client, err := rosterClient(ctx, tx, trainerID, clientID)
		if err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, result.Payment); err != nil {
			return err
		}
		result.Balance = client.Balance.Add(amount)
		return tx.UpdateClientBalance(ctx, clientID, result.Balance)
	})
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	s.log.InfoContext(ctx, "payment recorded",
		slog.Int64("payment_id", result.Payment.ID),
		slog.Int64("client_id", clientID),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("balance", result.Balance.StringFixed(2)),
	)
	return result, nil
}

// Schedule lists the trainer's planned sessions for the next days.
func (s *Service) Schedule(ctx context.Context, trainerID int64, days int) ([]domain.ScheduledSession, error) {
	days = clampDays(days)
	now := s.clock.Now()

	sessions, err := s.store.TrainerSchedule(ctx, trainerID, now, now.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		return nil, repository.AppError("session", err)
	}
	return sessions, nil
}

// Debts lists the trainer's approved clients with a negative balance, largest debt first.
func (s *Service) Debts(ctx context.Context, trainerID int64) ([]domain.Client, error) {
	clients, err := s.store.ListClientsByTrainer(ctx, trainerID, domain.StatusApproved, 0, 0)
	if err != nil {
		return nil, repository.AppError("client", err)
	}

	debtors := clients[:0]
	for _, c := range clients {
		if c.Balance.IsNegative() {
			debtors = append(debtors, c)
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].Balance.LessThan(debtors[j].Balance)
	})
	return debtors, nil
}

// Stats counts completed sessions and positive payments over the last days.
func (s *Service) Stats(ctx context.Context, trainerID int64, days int) (*domain.Stats, error) {
	days = clampDays(days)
	since := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)

	completed, err := s.store.CountCompletedSince(ctx, trainerID, since)
	if err != nil {
		return nil, repository.AppError("session", err)
	}
	income, err := s.store.IncomeSince(ctx, trainerID, since)
	if err != nil {
		return nil, repository.AppError("payment", err)
	}
	return &domain.Stats{Days: days, CompletedSessions: completed, Income: income}, nil
}

// rosterClient loads a client the trainer may write ledger entries for.
func rosterClient(ctx context.Context, tx *repository.Store, trainerID, clientID int64) (*domain.Client, error) {
	client, err := tx.ClientByID(ctx, clientID)
	if err != nil {
		return nil, repository.AppError("client", err)
	}
	if err := client.CheckOwner(trainerID); err != nil {
		return nil, err
	}
	if !client.Approved() {
		return nil, apperrors.NewForbiddenError("client is not approved")
	}
	return client, nil
}

func clampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	return min(days, maxDays)
}
