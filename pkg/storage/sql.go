package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_entries (
	namespace TEXT NOT NULL,
	entry_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, entry_key)
)`

// SQLStore keeps values in a kv_entries table. It works against PostgreSQL and SQLite;
// placeholders are rebound per driver.
type SQLStore struct {
	db        *sqlx.DB
	namespace string
	now       func() time.Time
}

// NewSQLStore wraps an open connection. Call EnsureSchema before first use.
func NewSQLStore(db *sqlx.DB, namespace string) *SQLStore {
	if namespace == "" {
		namespace = "attendance"
	}
	return &SQLStore{db: db, namespace: namespace, now: time.Now}
}

// EnsureSchema creates the kv_entries table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, kvSchema); err != nil {
		return fmt.Errorf("create kv_entries: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	query := s.db.Rebind(`SELECT payload FROM kv_entries WHERE namespace = ? AND entry_key = ?`)
	if err := s.db.GetContext(ctx, &payload, query, s.namespace, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(payload), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	query := s.db.Rebind(`INSERT INTO kv_entries (namespace, entry_key, payload, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, entry_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, s.namespace, key, string(value), s.now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM kv_entries WHERE namespace = ? AND entry_key = ?`)
	if _, err := s.db.ExecContext(ctx, query, s.namespace, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
