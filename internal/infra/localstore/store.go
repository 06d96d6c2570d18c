// Package localstore persists the client's session snapshot between
// runs, playing the role the browser's localStorage plays for the web
// client. A single SQLite file holds a key/value table; the session
// store reads and writes the fixed keys for token and identity.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Fixed storage keys, shared with the web client so a migration between
// the two finds the same names.
const (
	KeyToken = "fundconnect_token"
	KeyUser  = "fundconnect_user"
)

// Store is a SQLite-backed key/value store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	// Single writer; the kv table is tiny and contended only at login/logout.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, or "" if the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("local store get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts a value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("local store set %q: %w", key, err)
	}
	return nil
}

// Delete removes the given keys in one transaction, so token and
// identity cannot be cleared independently of each other.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("local store delete: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("local store delete %q: %w", key, err)
		}
	}

	return tx.Commit()
}
