package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool is the subset of *pgxpool.Pool the postgres backend
// uses; tests substitute a fake.
type PostgresPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresBackend implements Persistence on a single key/value table.
type PostgresBackend struct {
	pool PostgresPool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS warden_kv (
	namespace  text        NOT NULL,
	key        text        NOT NULL,
	value      jsonb       NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// NewPostgresPool dials a postgres connection pool.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// NewPostgresBackend creates the backend and ensures its table exists.
func NewPostgresBackend(ctx context.Context, pool PostgresPool) (*PostgresBackend, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

// Save upserts value under (namespace, key).
func (b *PostgresBackend) Save(ctx context.Context, ns Namespace, key string, value json.RawMessage) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO warden_kv (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		string(ns), key, value)
	return err
}

// Load reads the value under (namespace, key).
func (b *PostgresBackend) Load(ctx context.Context, ns Namespace, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := b.pool.QueryRow(ctx,
		`SELECT value FROM warden_kv WHERE namespace = $1 AND key = $2`,
		string(ns), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Close releases the pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
