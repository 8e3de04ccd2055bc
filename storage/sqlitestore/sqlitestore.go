// Package sqlitestore keeps session values in a single SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/storage"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS session_values (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`

var _ storage.Repo = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore Open] %w: %w", errors.ErrStorage, err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore Open] %w: %w", errors.ErrStorage, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	if err := storage.CheckKey(namespace, key); err != nil {
		return fmt.Errorf("[sqlitestore Set] %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
		namespace, key, value)
	if err != nil {
		return fmt.Errorf("[sqlitestore Set] %w: %w", errors.ErrStorage, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("[sqlitestore Get] %s/%s: %w", namespace, key, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("[sqlitestore Get] %w: %w", errors.ErrStorage, err)
	}
	return value, nil
}

// Delete removes keys from namespace in one transaction.
func (s *Store) Delete(ctx context.Context, namespace string, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[sqlitestore Delete] %w: %w", errors.ErrStorage, err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_values WHERE namespace = ? AND key = ?`,
			namespace, key); err != nil {
			return fmt.Errorf("[sqlitestore Delete] %w: %w", errors.ErrStorage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[sqlitestore Delete] %w: %w", errors.ErrStorage, err)
	}
	return nil
}
