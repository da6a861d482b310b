package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/trainer-bot/internal/domain"
)

// InsertPayment appends p to the ledger and fills its ID. Balance maintenance is the caller's job.
func (s *Store) InsertPayment(ctx context.Context, p *domain.Payment) error {
	const query = `
		INSERT INTO payments (client_id, amount, occurred_at, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	p.OccurredAt = dbTime(p.OccurredAt)
	if err := s.q.QueryRowContext(ctx, query, p.ClientID, p.Amount.String(), p.OccurredAt, p.Note).Scan(&p.ID); err != nil {
		s.log.Error("failed to insert payment", slog.Int64("client_id", p.ClientID), slog.Any("error", err))
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// RecentPayments returns the client's latest payments, newest first.
func (s *Store) RecentPayments(ctx context.Context, clientID int64, limit int) ([]domain.Payment, error) {
	const query = `SELECT id, client_id, amount, occurred_at, note FROM payments
		WHERE client_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`

	rows, err := s.q.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var (
			p          domain.Payment
			occurredAt time.Time
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Amount, &occurredAt, &p.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.OccurredAt = occurredAt.UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// SumPayments totals every payment of the client. Amounts are summed as decimals in Go
// because SQLite stores them as text.
func (s *Store) SumPayments(ctx context.Context, clientID int64) (decimal.Decimal, error) {
	return s.sumAmounts(ctx, false, `SELECT amount FROM payments WHERE client_id = $1`, clientID)
}

// IncomeSince totals positive payments of the trainer's approved clients at or after since.
func (s *Store) IncomeSince(ctx context.Context, trainerID int64, since time.Time) (decimal.Decimal, error) {
	const query = `SELECT p.amount FROM payments p JOIN clients c ON c.id = p.client_id
		WHERE c.trainer_id = $1 AND c.status = $2 AND p.occurred_at >= $3`

	return s.sumAmounts(ctx, true, query, trainerID, string(domain.StatusApproved), dbTime(since))
}

func (s *Store) sumAmounts(ctx context.Context, positiveOnly bool, query string, args ...any) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		if !positiveOnly || amount.IsPositive() {
			total = total.Add(amount)
		}
	}
	return total, rows.Err()
}
