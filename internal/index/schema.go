// Package index keeps the in-process table of periodic notes, keyed by the
// DateUID of the period each note covers.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN keeps the index in memory; it is rebuilt on every start.
const MemoryDSN = ":memory:"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS periodic_notes (
	path        TEXT PRIMARY KEY,
	uid         TEXT NOT NULL,
	granularity TEXT NOT NULL,
	date        INTEGER NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	sticker     TEXT NOT NULL DEFAULT '',
	words       INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_periodic_notes_uid ON periodic_notes(uid);
CREATE INDEX IF NOT EXISTS idx_periodic_notes_range ON periodic_notes(granularity, date);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens the SQLite database and applies the schema. The pool is held
// to a single connection because every connection to ":memory:" would see
// its own empty database.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
