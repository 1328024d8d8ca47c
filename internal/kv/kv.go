// Package kv is the on-device string-keyed store: one JSON-encoded value per key in the kv_entries table.
package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Keys used by the application.
const (
	KeyLocalPlaylists = "localPlaylists"
	KeyAuthIdentity   = "auth_identity"
	migrationPrefix   = "migration_"
)

// MigrationKey returns the marker key for userID.
func MigrationKey(userID string) string {
	return migrationPrefix + userID
}

// Store is a synchronous string-keyed store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(key string) error
}

// SQLiteStore implements [Store] over the kv_entries table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new [SQLiteStore]. The schema must already be migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, value, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Entry is one row as listed by [SQLiteStore.Keys].
type Entry struct {
	Key       string
	UpdatedAt time.Time
}

// Keys lists entries whose key starts with prefix, most recently written first.
func (s *SQLiteStore) Keys(prefix string) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT key, updated_at FROM kv_entries WHERE key LIKE ? ESCAPE '\\' ORDER BY updated_at DESC",
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MigrationKeys lists marker entries.
func (s *SQLiteStore) MigrationKeys() ([]Entry, error) {
	return s.Keys(migrationPrefix)
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
