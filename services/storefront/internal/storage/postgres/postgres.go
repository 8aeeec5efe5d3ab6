package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/cyrasubia/phoinix-storefront/pkg/database"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	getSQL    = `SELECT value FROM storefront_kv WHERE key = $1`
	upsertSQL = `INSERT INTO storefront_kv (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	deleteSQL = `DELETE FROM storefront_kv WHERE key = $1`
)

// Migrate creates the storefront_kv table if it does not exist yet.
func Migrate(ctx context.Context, db database.TxBeginner, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	return database.RunMigrations(ctx, db, sub, logger)
}

// Store implements storage.KeyValue on a PostgreSQL table.
type Store struct {
	db database.DBTX
}

func New(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) (value []byte, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "kv.get", getSQL)
	defer func() { end(ignoreNotFound(err)) }()

	if err = s.db.QueryRow(ctx, getSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

// A missing key is not a failed query.
func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "kv.set", upsertSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "kv.delete", deleteSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping uses the pool's Ping when available and SELECT 1 otherwise.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(pinger); ok {
		return p.Ping(ctx)
	}
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}
