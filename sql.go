package rewind

import (
	"context"
	"database/sql"
	"errors"
)

// SQLSerializer persists histories through database/sql, one row per
// identifier. PostgreSQL users should prefer PostgresSerializer, which
// speaks pgx natively
type SQLSerializer struct {
	db *sql.DB
}

const (
	sqlMigrate = `CREATE TABLE IF NOT EXISTS rewind_history (
		id TEXT PRIMARY KEY,
		data BLOB NOT NULL
	)`

	sqlUpsert = `INSERT INTO rewind_history (id, data) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`

	sqlSelect = `SELECT data FROM rewind_history WHERE id = ?`

	sqlDelete = `DELETE FROM rewind_history WHERE id = ?`
)

// NewSQLSerializer prepares the history table on the provided database
// handle. The caller retains ownership of the handle
func NewSQLSerializer(ctx context.Context, db *sql.DB) (*SQLSerializer, error) {
	if _, err := db.ExecContext(ctx, sqlMigrate); err != nil {
		return nil, err
	}
	return &SQLSerializer{db: db}, nil
}

func (s *SQLSerializer) Save(
	ctx context.Context, id StackID, h History,
) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlUpsert, JoinKey(id), data)
	return err
}

func (s *SQLSerializer) Load(
	ctx context.Context, id StackID,
) (History, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, sqlSelect, JoinKey(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory(data)
}

// Delete removes the persisted history for an identifier
func (s *SQLSerializer) Delete(ctx context.Context, id StackID) error {
	_, err := s.db.ExecContext(ctx, sqlDelete, JoinKey(id))
	return err
}
