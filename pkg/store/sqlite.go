package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by an embedded SQLite database. Rows are
// keyed by (namespace, thread_id, key) so several stores with distinct
// namespaces can share one file.
type SQLite struct {
	db        *sql.DB
	namespace string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and
// ensures the preferences schema exists. The parent directory is
// created when missing.
func OpenSQLite(path, namespace string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL keeps concurrent turn handling from tripping over SQLITE_BUSY.
	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		namespace TEXT NOT NULL,
		thread_id TEXT NOT NULL,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, thread_id, key)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db, namespace: namespace}, nil
}

func (s *SQLite) Get(ctx context.Context, thread, key, def string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE namespace = ? AND thread_id = ? AND key = ?`,
		s.namespace, thread, key)

	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, opError("get", thread, err)
	}
	return value, nil
}

func (s *SQLite) Put(ctx context.Context, thread, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (namespace, thread_id, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, thread_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		s.namespace, thread, key, value, time.Now().Unix())
	return opError("put", thread, err)
}

func (s *SQLite) Delete(ctx context.Context, thread, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE namespace = ? AND thread_id = ? AND key = ?`,
		s.namespace, thread, key)
	return opError("delete", thread, err)
}

func (s *SQLite) ListKeys(ctx context.Context, thread string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM preferences WHERE namespace = ? AND thread_id = ? ORDER BY key`,
		s.namespace, thread)
	if err != nil {
		return nil, opError("list_keys", thread, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, opError("list_keys", thread, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, opError("list_keys", thread, err)
	}
	return keys, nil
}

func (s *SQLite) BatchPut(ctx context.Context, thread string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return opError("batch_put", thread, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO preferences (namespace, thread_id, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, thread_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)
	if err != nil {
		return opError("batch_put", thread, err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, s.namespace, thread, k, v, now); err != nil {
			return opError("batch_put", thread, err)
		}
	}
	return opError("batch_put", thread, tx.Commit())
}

// Close closes the underlying database. Operations after Close fail
// with the driver's closed-connection error wrapped in StoreError.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
