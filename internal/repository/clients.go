package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/trainer-bot/internal/domain"
)

const clientColumns = `id, name, phone, notes, balance, chat_id, trainer_id, status, created_at`

// CreateClient inserts c and fills its ID. A zero balance is stored for new clients.
func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	const query = `
		INSERT INTO clients (name, phone, notes, balance, chat_id, trainer_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	c.CreatedAt = dbTime(c.CreatedAt)
	if err := s.q.QueryRowContext(ctx, query,
		c.Name, c.Phone, c.Notes, c.Balance.String(), nullableID(c.ChatID), nullableID(c.TrainerID), string(c.Status), c.CreatedAt,
	).Scan(&c.ID); err != nil {
		s.log.Error("failed to create client", slog.Any("error", err))
		return fmt.Errorf("insert client: %w", err)
	}

	return nil
}

// ClientByID loads a client by primary key.
func (s *Store) ClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	return s.clientWhere(ctx, "id = $1", id)
}

// ClientByChatID loads the client bound to chatID.
func (s *Store) ClientByChatID(ctx context.Context, chatID int64) (*domain.Client, error) {
	return s.clientWhere(ctx, "chat_id = $1", chatID)
}

func (s *Store) clientWhere(ctx context.Context, cond string, arg any) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + cond

	var c domain.Client
	if err := scanClient(s.q.QueryRowContext(ctx, query, arg), &c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListClientsByTrainer pages through a trainer's clients in the given status, by name.
// A non-positive limit returns every match.
func (s *Store) ListClientsByTrainer(ctx context.Context, trainerID int64, status domain.ApprovalStatus, limit, offset int) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE trainer_id = $1 AND status = $2 ORDER BY name, id`
	args := []any{trainerID, string(status)}
	if limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := scanClient(rows, &c); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CountClientsByTrainer counts a trainer's clients in the given status.
func (s *Store) CountClientsByTrainer(ctx context.Context, trainerID int64, status domain.ApprovalStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM clients WHERE trainer_id = $1 AND status = $2`

	var count int
	if err := s.q.QueryRowContext(ctx, query, trainerID, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return count, nil
}

// UpdateClientBinding sets the trainer reference and approval status together.
func (s *Store) UpdateClientBinding(ctx context.Context, clientID int64, trainerID *int64, status domain.ApprovalStatus) error {
	const query = `UPDATE clients SET trainer_id = $1, status = $2 WHERE id = $3`

	return s.execOne(ctx, "update client binding", query, nullableID(trainerID), string(status), clientID)
}

// UpdateClientBalance overwrites the cached balance. Callers hold the write transaction.
func (s *Store) UpdateClientBalance(ctx context.Context, clientID int64, balance decimal.Decimal) error {
	const query = `UPDATE clients SET balance = $1 WHERE id = $2`

	return s.execOne(ctx, "update client balance", query, balance.String(), clientID)
}

// DeleteClient removes the client together with its sessions and payments.
func (s *Store) DeleteClient(ctx context.Context, clientID int64) error {
	return s.InTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM sessions WHERE client_id = $1`, clientID); err != nil {
			return fmt.Errorf("delete client sessions: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM payments WHERE client_id = $1`, clientID); err != nil {
			return fmt.Errorf("delete client payments: %w", err)
		}
		return tx.execOne(ctx, "delete client", `DELETE FROM clients WHERE id = $1`, clientID)
	})
}

func scanClient(row rowScanner, c *domain.Client) error {
	var (
		balance   decimal.Decimal
		chatID    sql.NullInt64
		trainerID sql.NullInt64
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Notes, &balance, &chatID, &trainerID, &status, &createdAt); err != nil {
		return err
	}

	c.Balance = balance
	c.ChatID = idPtr(chatID)
	c.TrainerID = idPtr(trainerID)
	c.Status = domain.ApprovalStatus(status)
	c.CreatedAt = createdAt.UTC()
	return nil
}
