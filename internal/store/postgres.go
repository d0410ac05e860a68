package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores records as JSONB rows in the records table.
// The table is created by db.Migrate.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a backend over pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Name() string { return "postgres" }

// Ping checks the database connection.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT data FROM records WHERE key = $1`

	var data []byte
	err := b.pool.QueryRow(ctx, query, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	const query = `
		INSERT INTO records (key, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`

	_, err := b.pool.Exec(ctx, query, key, string(data))
	return err
}

func (b *PostgresBackend) Remove(ctx context.Context, key string) (bool, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM records WHERE key = $1`, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (b *PostgresBackend) Has(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := b.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM records WHERE key = $1)`, key).Scan(&exists)
	return exists, err
}

func (b *PostgresBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	const query = `SELECT key FROM records WHERE starts_with(key, $1) ORDER BY key`

	rows, err := b.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
