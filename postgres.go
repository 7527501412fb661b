package rewind

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSerializer persists histories to PostgreSQL through a pgx
// connection pool
type PostgresSerializer struct {
	pool *pgxpool.Pool
}

const (
	pgMigrate = `CREATE TABLE IF NOT EXISTS rewind_history (
		id TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	pgUpsert = `INSERT INTO rewind_history (id, data) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET data = excluded.data, updated_at = now()`

	pgSelect = `SELECT data FROM rewind_history WHERE id = $1`

	pgDelete = `DELETE FROM rewind_history WHERE id = $1`
)

func NewPostgresSerializer(
	ctx context.Context, dsn string,
) (*PostgresSerializer, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgMigrate); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSerializer{pool: pool}, nil
}

func (p *PostgresSerializer) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresSerializer) Save(
	ctx context.Context, id StackID, h History,
) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, pgUpsert, JoinKey(id), data)
	return err
}

func (p *PostgresSerializer) Load(
	ctx context.Context, id StackID,
) (History, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, pgSelect, JoinKey(id)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory(data)
}

// Delete removes the persisted history for an identifier
func (p *PostgresSerializer) Delete(ctx context.Context, id StackID) error {
	_, err := p.pool.Exec(ctx, pgDelete, JoinKey(id))
	return err
}
