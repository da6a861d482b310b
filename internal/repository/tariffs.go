package repository

import (
	"context"
	"fmt"

	"github.com/Proton-105/trainer-bot/internal/domain"
)

// CreateTariff inserts t and fills its ID.
func (s *Store) CreateTariff(ctx context.Context, t *domain.Tariff) error {
	const query = `
		INSERT INTO tariffs (trainer_id, title, description, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := s.q.QueryRowContext(ctx, query, t.TrainerID, t.Title, t.Description, t.Price.String()).Scan(&t.ID); err != nil {
		return fmt.Errorf("insert tariff: %w", err)
	}
	return nil
}

// TariffByID loads a tariff by primary key.
func (s *Store) TariffByID(ctx context.Context, id int64) (*domain.Tariff, error) {
	const query = `SELECT id, trainer_id, title, description, price FROM tariffs WHERE id = $1`

	var t domain.Tariff
	if err := s.q.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.TrainerID, &t.Title, &t.Description, &t.Price); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListTariffs returns the trainer's tariffs in creation order.
func (s *Store) ListTariffs(ctx context.Context, trainerID int64) ([]domain.Tariff, error) {
	const query = `SELECT id, trainer_id, title, description, price FROM tariffs WHERE trainer_id = $1 ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, trainerID)
	if err != nil {
		return nil, fmt.Errorf("list tariffs: %w", err)
	}
	defer rows.Close()

	var tariffs []domain.Tariff
	for rows.Next() {
		var t domain.Tariff
		if err := rows.Scan(&t.ID, &t.TrainerID, &t.Title, &t.Description, &t.Price); err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

// DeleteTariff removes a tariff.
func (s *Store) DeleteTariff(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete tariff", `DELETE FROM tariffs WHERE id = $1`, id)
}
