package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cyrasubia/phoinix-storefront/pkg/database"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`
	getSQL    = `SELECT value FROM kv_store WHERE key = ?`
	upsertSQL = `INSERT INTO kv_store (key, value, updated_at)
VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteSQL = `DELETE FROM kv_store WHERE key = ?`
)

// Store implements storage.KeyValue on a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the database at cfg.Path and ensures the kv_store table.
func Open(ctx context.Context, cfg database.SQLiteConfig) (*Store, error) {
	db, err := database.OpenSQLite(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database, creating the table if needed.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("create kv_store table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (value []byte, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "kv.get", getSQL)
	defer func() { end(ignoreNotFound(err)) }()

	if err = s.db.QueryRowContext(ctx, getSQL, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "kv.set", upsertSQL)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemSQLite, "kv.delete", deleteSQL)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
