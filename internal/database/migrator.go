package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded goose migrations for the active dialect.
type Migrator struct {
	db  *DB
	log *slog.Logger
}

// NewMigrator constructs a Migrator that logs through the provided logger instance.
func NewMigrator(db *DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{
		db:  db,
		log: log,
	}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	provider, err := m.provider()
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if len(results) == 0 {
		m.log.Info("schema is up to date", slog.String("driver", m.db.Driver()))
		return nil
	}

	for _, res := range results {
		m.log.Info("migration applied",
			slog.String("source", res.Source.Path),
			slog.Duration("duration", res.Duration),
		)
	}

	return nil
}

// Version reports the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	provider, err := m.provider()
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

func (m *Migrator) provider() (*goose.Provider, error) {
	dialect := goose.DialectSQLite3
	if m.db.Driver() == DriverPostgres {
		dialect = goose.DialectPostgres
	}

	dir, err := fs.Sub(migrationsFS, "migrations/"+m.db.Driver())
	if err != nil {
		return nil, fmt.Errorf("open migrations for %s: %w", m.db.Driver(), err)
	}

	provider, err := goose.NewProvider(dialect, m.db.DB, dir)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}
