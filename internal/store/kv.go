// Package store persists flat key-value namespaces in a SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SchemaVersion is bumped whenever the on-disk layout changes
const SchemaVersion = 1

const (
	// NamespaceWallpaper holds the wallpaper configuration
	NamespaceWallpaper = "wallpaper"
	// NamespaceApps is reserved for per-app visibility and ordering metadata
	NamespaceApps = "apps"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS kv (
    namespace  TEXT    NOT NULL,
    key        TEXT    NOT NULL,
    value      TEXT    NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// ErrNewerSchema is returned when the database was written by a newer release
var ErrNewerSchema = errors.New("settings database has a newer schema version")

// KV is a SQLite-backed store of independent flat namespaces
type KV struct {
	logger *zap.Logger
	db     *sql.DB
}

// Open opens (and creates if needed) the database at path
func Open(path string, logger *zap.Logger) (*KV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(FULL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer connection keeps SQLite from returning SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := checkSchemaVersion(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("Settings database opened", zap.String("path", path))
	return &KV{logger: logger, db: db}, nil
}

// checkSchemaVersion stamps a fresh database and refuses newer ones
func checkSchemaVersion(db *sql.DB, logger *zap.Logger) error {
	var current int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("failed to write schema version: %w", err)
		}
		logger.Info("Initialized settings database", zap.Int("schemaVersion", SchemaVersion))
		return nil
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case current > SchemaVersion:
		return fmt.Errorf("%w: found %d, supported %d", ErrNewerSchema, current, SchemaVersion)
	case current < SchemaVersion:
		// No migrations exist yet: version 1 is the first layout
		if _, err := db.Exec("UPDATE schema_version SET version = ?", SchemaVersion); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}
	return nil
}

// Version returns the stored schema version
func (s *KV) Version() (int, error) {
	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Bucket returns the namespace with the given name
func (s *KV) Bucket(namespace string) *Bucket {
	return &Bucket{db: s.db, namespace: namespace}
}

// Close closes the database
func (s *KV) Close() error {
	return s.db.Close()
}

// Bucket is one flat key-value namespace
type Bucket struct {
	db        *sql.DB
	namespace string
}

// Namespace returns the bucket name
func (b *Bucket) Namespace() string {
	return b.namespace
}

// Get returns the value for key and whether it exists
func (b *Bucket) Get(key string) (string, bool, error) {
	var v string
	err := b.db.QueryRow("SELECT value FROM kv WHERE namespace = ? AND key = ?", b.namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s/%s: %w", b.namespace, key, err)
	}
	return v, true, nil
}

// Set stores one key
func (b *Bucket) Set(key, value string) error {
	return b.Update(map[string]string{key: value})
}

// SetMany stores several keys in a single transaction
func (b *Bucket) SetMany(values map[string]string) error {
	return b.Update(values)
}

// Delete removes keys; missing keys are ignored
func (b *Bucket) Delete(keys ...string) error {
	return b.Update(nil, keys...)
}

// Update writes set and removes del in a single transaction
func (b *Bucket) Update(set map[string]string, del ...string) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	for k, v := range set {
		if _, err := tx.Exec(`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			b.namespace, k, v, now); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", b.namespace, k, err)
		}
	}
	for _, k := range del {
		if _, err := tx.Exec("DELETE FROM kv WHERE namespace = ? AND key = ?", b.namespace, k); err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", b.namespace, k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// All returns every key in the namespace
func (b *Bucket) All() (map[string]string, error) {
	rows, err := b.db.Query("SELECT key, value FROM kv WHERE namespace = ?", b.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", b.namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Clear removes every key in the namespace
func (b *Bucket) Clear() error {
	if _, err := b.db.Exec("DELETE FROM kv WHERE namespace = ?", b.namespace); err != nil {
		return fmt.Errorf("failed to clear %s: %w", b.namespace, err)
	}
	return nil
}
