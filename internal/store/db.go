// Package store is the persistence gateway: a single SQLite-backed
// database holding missions, agents, unified tasks, learnings, and
// search feedback, behind a narrow set of row-level atomic operations.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

//go:embed migrations/002_session_index.sql
var migration002 string

//go:embed migrations/003_lessons.sql
var migration003 string

// DB is the concrete SQLite-backed persistence gateway. Its methods are
// split across missions.go, agents.go, unifiedtasks.go, and learnings.go;
// this file owns connection setup, migration, and the shared withTx helper.
type DB struct {
	conn *sql.DB
}

// Open creates (if needed) and migrates the database at path, returning a
// ready-to-use gateway. WAL mode and a busy timeout let concurrent
// control-plane tasks read and write without lock-contention errors.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

func (d *DB) migrate() error {
	if _, err := d.conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	err := d.conn.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check schema version: %w", err)
	}

	if version < 2 {
		if _, err := d.conn.Exec(migration002); err != nil {
			return fmt.Errorf("run migration 002: %w", err)
		}
	}
	if version < 3 {
		if _, err := d.conn.Exec(migration003); err != nil {
			return fmt.Errorf("run migration 003: %w", err)
		}
	}

	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// withTx runs fn inside a transaction, rolling back on any returned error
// and committing otherwise.
func (d *DB) withTx(fn func(*sql.Tx) error) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return wrapIO("withTx.begin", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapIO("withTx.commit", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}
