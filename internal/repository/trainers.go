package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/trainer-bot/internal/domain"
)

const trainerColumns = `id, chat_id, display_name, city, pricing_text, invite_code, created_at`

// CityKey normalizes a city name for case-insensitive directory filtering.
func CityKey(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

// CreateTrainer inserts t and fills its ID.
func (s *Store) CreateTrainer(ctx context.Context, t *domain.Trainer) error {
	const query = `
		INSERT INTO trainers (chat_id, display_name, city, city_key, pricing_text, invite_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	t.CreatedAt = dbTime(t.CreatedAt)
	if err := s.q.QueryRowContext(ctx, query,
		t.ChatID, t.DisplayName, t.City, CityKey(t.City), t.PricingText, t.InviteCode, t.CreatedAt,
	).Scan(&t.ID); err != nil {
		s.log.Error("failed to create trainer", slog.Int64("chat_id", t.ChatID), slog.Any("error", err))
		return fmt.Errorf("insert trainer: %w", err)
	}

	return nil
}

// TrainerByID loads a trainer by primary key.
func (s *Store) TrainerByID(ctx context.Context, id int64) (*domain.Trainer, error) {
	return s.trainerWhere(ctx, "id = $1", id)
}

// TrainerByChatID loads the trainer registered from chatID.
func (s *Store) TrainerByChatID(ctx context.Context, chatID int64) (*domain.Trainer, error) {
	return s.trainerWhere(ctx, "chat_id = $1", chatID)
}

// TrainerByInviteCode loads the trainer owning code.
func (s *Store) TrainerByInviteCode(ctx context.Context, code string) (*domain.Trainer, error) {
	return s.trainerWhere(ctx, "invite_code = $1", code)
}

func (s *Store) trainerWhere(ctx context.Context, cond string, arg any) (*domain.Trainer, error) {
	query := `SELECT ` + trainerColumns + ` FROM trainers WHERE ` + cond

	var t domain.Trainer
	if err := scanTrainer(s.q.QueryRowContext(ctx, query, arg), &t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// UpdateTrainerProfile stores the city and free-text pricing.
func (s *Store) UpdateTrainerProfile(ctx context.Context, id int64, city, pricing string) error {
	const query = `UPDATE trainers SET city = $1, city_key = $2, pricing_text = $3 WHERE id = $4`

	return s.execOne(ctx, "update trainer profile", query, city, CityKey(city), pricing, id)
}

// UpdateInviteCode replaces the trainer's invite code.
func (s *Store) UpdateInviteCode(ctx context.Context, id int64, code string) error {
	const query = `UPDATE trainers SET invite_code = $1 WHERE id = $2`

	return s.execOne(ctx, "update invite code", query, code, id)
}

// ListTrainers pages through the directory, optionally filtered by city.
func (s *Store) ListTrainers(ctx context.Context, city string, limit, offset int) ([]domain.Trainer, error) {
	query := `SELECT ` + trainerColumns + ` FROM trainers`
	args := []any{}
	if key := CityKey(city); key != "" {
		query += ` WHERE city_key = $1 ORDER BY display_name, id LIMIT $2 OFFSET $3`
		args = append(args, key, limit, offset)
	} else {
		query += ` ORDER BY display_name, id LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trainers: %w", err)
	}
	defer rows.Close()

	var trainers []domain.Trainer
	for rows.Next() {
		var t domain.Trainer
		if err := scanTrainer(rows, &t); err != nil {
			return nil, fmt.Errorf("scan trainer: %w", err)
		}
		trainers = append(trainers, t)
	}
	return trainers, rows.Err()
}

// CountTrainers counts directory entries for the same filter as ListTrainers.
func (s *Store) CountTrainers(ctx context.Context, city string) (int, error) {
	var (
		count int
		err   error
	)
	if key := CityKey(city); key != "" {
		err = s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM trainers WHERE city_key = $1`, key).Scan(&count)
	} else {
		err = s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM trainers`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count trainers: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrainer(row rowScanner, t *domain.Trainer) error {
	var createdAt time.Time
	if err := row.Scan(&t.ID, &t.ChatID, &t.DisplayName, &t.City, &t.PricingText, &t.InviteCode, &createdAt); err != nil {
		return err
	}
	t.CreatedAt = createdAt.UTC()
	return nil
}

func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		s.log.Error("store write failed", slog.String("operation", op), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
