// Package store implements the Persister interface and its SQLite-backed
// implementation, grounded in original_source/src/persist/sqlite_persister.rs
// and spec.md §6's relational schema.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	pkgerrors "github.com/dropctl/dropctl/pkg/errors"
)

// Secret is one row of the secrets table.
type Secret struct {
	Key   string
	Value string
	Env   string
}

// Persister is the storage contract spec.md §6 requires: persisting call
// records and managing secrets scoped by environment.
type Persister interface {
	PersistCallRecord(dropID, fullURL string, statusCode int, body string) error
	SetSecret(key, value, env string, overwrite bool) error
	GetSecret(key, env string) (string, bool, error)
	DeleteSecret(key, env string) error
	ListSecrets(env string) ([]Secret, error)
	Close() error
}

// SQLiteStore is a Persister backed by modernc.org/sqlite, the pure-Go
// CGo-free driver this module uses as the analog of the original's
// rusqlite dependency.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or attaches to a SQLite database at path and ensures the
// drop_record and secrets tables exist.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.NewPersistError("open", err)
	}
	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drop_record (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			drop_id TEXT NOT NULL,
			full_url TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			full_response TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS secrets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			env TEXT NOT NULL,
			UNIQUE(key, env)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return pkgerrors.NewPersistError("migrate", err)
		}
	}
	return nil
}

// PersistCallRecord writes one drop_record row (spec.md §4.6 step 1).
func (s *SQLiteStore) PersistCallRecord(dropID, fullURL string, statusCode int, body string) error {
	_, err := s.db.Exec(
		`INSERT INTO drop_record (drop_id, full_url, status_code, full_response, timestamp) VALUES (?, ?, ?, ?, ?)`,
		dropID, fullURL, statusCode, body, time.Now().Unix(),
	)
	if err != nil {
		return pkgerrors.NewPersistError("persist_call_record", err)
	}
	return nil
}

// SetSecret inserts or, when overwrite is true, replaces a (key, env)
// secret. Without overwrite, attempting to set an existing key is a
// PersistError.
func (s *SQLiteStore) SetSecret(key, value, env string, overwrite bool) error {
	if env == "" {
		env = "base"
	}
	if overwrite {
		_, err := s.db.Exec(
			`INSERT INTO secrets (key, value, env) VALUES (?, ?, ?)
			 ON CONFLICT(key, env) DO UPDATE SET value = excluded.value`,
			key, value, env,
		)
		if err != nil {
			return pkgerrors.NewPersistError("set_secret", err)
		}
		return nil
	}

	_, err := s.db.Exec(`INSERT INTO secrets (key, value, env) VALUES (?, ?, ?)`, key, value, env)
	if err != nil {
		return pkgerrors.NewPersistError("set_secret", fmt.Errorf("%s already exists in env %s (use overwrite): %w", key, env, err))
	}
	return nil
}

// GetSecret looks up a secret by key and env.
func (s *SQLiteStore) GetSecret(key, env string) (string, bool, error) {
	if env == "" {
		env = "base"
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM secrets WHERE key = ? AND env = ?`, key, env).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.NewPersistError("get_secret", err)
	}
	return value, true, nil
}

// DeleteSecret removes a secret by key and env.
func (s *SQLiteStore) DeleteSecret(key, env string) error {
	if env == "" {
		env = "base"
	}
	_, err := s.db.Exec(`DELETE FROM secrets WHERE key = ? AND env = ?`, key, env)
	if err != nil {
		return pkgerrors.NewPersistError("delete_secret", err)
	}
	return nil
}

// ListSecrets returns every secret scoped to env, for the `secret get`
// table output (supplemented feature #2).
func (s *SQLiteStore) ListSecrets(env string) ([]Secret, error) {
	if env == "" {
		env = "base"
	}
	rows, err := s.db.Query(`SELECT key, value, env FROM secrets WHERE env = ? ORDER BY key`, env)
	if err != nil {
		return nil, pkgerrors.NewPersistError("list_secrets", err)
	}
	defer rows.Close()

	var out []Secret
	for rows.Next() {
		var sec Secret
		if err := rows.Scan(&sec.Key, &sec.Value, &sec.Env); err != nil {
			return nil, pkgerrors.NewPersistError("list_secrets", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
