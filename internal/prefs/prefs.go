// Package prefs is a small namespaced key/value store in SQLite. Values are
// opaque strings; callers that need structure store JSON.
package prefs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS prefs (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
);
`

// DB owns the connection shared by every namespace.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("prefs: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prefs: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prefs: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Namespace returns the store for one independent group of keys.
func (db *DB) Namespace(name string) *Store {
	return &Store{conn: db.conn, ns: name}
}

// Store reads and writes the keys of a single namespace.
type Store struct {
	conn *sql.DB
	ns   string
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	var v string
	err := s.conn.QueryRow(`SELECT value FROM prefs WHERE namespace = ? AND key = ?`, s.ns, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s/%s: %w", s.ns, key, err)
	}
	return v, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key, value string) error {
	_, err := s.conn.Exec(`
		INSERT INTO prefs (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, s.ns, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("prefs: put %s/%s: %w", s.ns, key, err)
	}
	return nil
}

// Int64 returns the integer stored under key, or def when missing or malformed.
func (s *Store) Int64(key string, def int64) int64 {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// PutInt64 stores an integer under key.
func (s *Store) PutInt64(key string, v int64) error {
	return s.Put(key, strconv.FormatInt(v, 10))
}

// GetJSON decodes the value under key into v. It reports false when the key
// is missing; a decode failure is returned as an error.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("prefs: decode %s/%s: %w", s.ns, key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func (s *Store) PutJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prefs: encode %s/%s: %w", s.ns, key, err)
	}
	return s.Put(key, string(data))
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	if _, err := s.conn.Exec(`DELETE FROM prefs WHERE namespace = ? AND key = ?`, s.ns, key); err != nil {
		return fmt.Errorf("prefs: remove %s/%s: %w", s.ns, key, err)
	}
	return nil
}

// All returns every key/value pair in the namespace.
func (s *Store) All() (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT key, value FROM prefs WHERE namespace = ?`, s.ns)
	if err != nil {
		return nil, fmt.Errorf("prefs: all %s: %w", s.ns, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// RemovePrefix deletes every key starting with prefix.
func (s *Store) RemovePrefix(prefix string) error {
	_, err := s.conn.Exec(`DELETE FROM prefs WHERE namespace = ? AND substr(key, 1, ?) = ?`,
		s.ns, len(prefix), prefix)
	if err != nil {
		return fmt.Errorf("prefs: remove prefix %s/%s: %w", s.ns, prefix, err)
	}
	return nil
}
