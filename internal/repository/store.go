// Package repository implements persistence for trainers, clients, sessions, payments and tariffs.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/trainer-bot/internal/database"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the explicit store handle passed to every operation. Queries use $N placeholders
// numbered in order of first appearance, which both sqlite3 and postgres accept.
type Store struct {
	db   *database.DB
	q    querier
	inTx bool
	log  *slog.Logger
}

// NewStore wraps db.
func NewStore(db *database.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, q: db.DB, log: log}
}

// InTx runs fn against a transactional copy of the store. Writers are serialized process-wide.
// Nested calls reuse the outer transaction. Inside fn only the tx store may be used.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, q: tx, inTx: true, log: s.log})
	})
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullableID(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// AppError maps a store failure onto the application taxonomy: a missing row becomes
// NotFound for entity, anything else a database error.
func AppError(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return apperrors.NewNotFoundError(entity)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewDatabaseError(err)
}
