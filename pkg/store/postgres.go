package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool abstracts pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS companion_kv (
            key        TEXT PRIMARY KEY,
            value      JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlGet = `SELECT value FROM companion_kv WHERE key = $1;`
	sqlPut = `
        INSERT INTO companion_kv (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            updated_at = EXCLUDED.updated_at;
    `
	sqlDelete = `DELETE FROM companion_kv WHERE key = $1;`
)

// Postgres implements KV on a single companion_kv table.
type Postgres struct {
	pool DBPool
	log  *slog.Logger
	now  func() time.Time
}

// NewPostgres verifies the connection and returns a store.
func NewPostgres(ctx context.Context, pool DBPool, logger *slog.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		pool: pool,
		log:  logger.With("component", "store.postgres"),
		now:  time.Now,
	}, nil
}

// OpenPostgres connects a pool to dsn, creates the table when missing and
// wraps it. The returned close func releases the pool.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	s, err := preparePostgres(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// preparePostgres pings pool and ensures the schema exists.
func preparePostgres(ctx context.Context, pool DBPool, logger *slog.Logger) (*Postgres, error) {
	s, err := NewPostgres(ctx, pool, logger)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the table if it is missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateTable); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the stored document for key.
func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, sqlGet, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Put upserts key.
func (s *Postgres) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx, sqlPut, key, value, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	s.log.Debug("stored", "key", key, "bytes", len(value))
	return nil
}

// Delete removes key.
func (s *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, sqlDelete, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
