package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/periodic"
)

const noteColumns = `path, uid, granularity, date, title, sticker, words, checksum, updated_at`

type fingerprint struct {
	checksum string
	uid      string
}

// Put inserts or replaces the entry stored under n.Path.
func (db *DB) Put(n models.PeriodicNote) error {
	_, err := db.conn.Exec(`
		INSERT INTO periodic_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			uid         = excluded.uid,
			granularity = excluded.granularity,
			date        = excluded.date,
			title       = excluded.title,
			sticker     = excluded.sticker,
			words       = excluded.words,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`, n.Path, n.UID, string(n.Granularity), n.Date.Unix(), n.Title, n.Sticker, n.Words, n.Checksum, n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: put: %w", err)
	}
	return nil
}

// DeleteByPath removes the entry for path and reports whether one existed.
func (db *DB) DeleteByPath(path string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM periodic_notes WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("index: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("index: delete: %w", err)
	}
	return n > 0, nil
}

// Get returns the note of the period uid. When several files resolve to the
// same period the one with the smallest path wins.
func (db *DB) Get(uid string) (*models.PeriodicNote, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM periodic_notes WHERE uid = ? ORDER BY path LIMIT 1`, uid)
	return scanOne(row, uid)
}

// ByPath returns the entry stored for a vault path.
func (db *DB) ByPath(path string) (*models.PeriodicNote, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM periodic_notes WHERE path = ?`, path)
	return scanOne(row, path)
}

// Range returns the g-notes whose period starts in [from, to), by date.
func (db *DB) Range(g periodic.Granularity, from, to time.Time) ([]models.PeriodicNote, error) {
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM periodic_notes
		WHERE granularity = ? AND date >= ? AND date < ?
		ORDER BY date, path
	`, string(g), from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("index: range: %w", err)
	}
	return scanAll(rows)
}

// All returns every g-note by date.
func (db *DB) All(g periodic.Granularity) ([]models.PeriodicNote, error) {
	rows, err := db.conn.Query(`SELECT `+noteColumns+` FROM periodic_notes WHERE granularity = ? ORDER BY date, path`, string(g))
	if err != nil {
		return nil, fmt.Errorf("index: all: %w", err)
	}
	return scanAll(rows)
}

// Reset drops every entry.
func (db *DB) Reset() error {
	if _, err := db.conn.Exec(`DELETE FROM periodic_notes`); err != nil {
		return fmt.Errorf("index: reset: %w", err)
	}
	return nil
}

func (db *DB) fingerprints() (map[string]fingerprint, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, uid FROM periodic_notes`)
	if err != nil {
		return nil, fmt.Errorf("index: fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]fingerprint)
	for rows.Next() {
		var p string
		var fp fingerprint
		if err := rows.Scan(&p, &fp.checksum, &fp.uid); err != nil {
			return nil, err
		}
		out[p] = fp
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (models.PeriodicNote, error) {
	var n models.PeriodicNote
	var g string
	var date int64
	err := s.Scan(&n.Path, &n.UID, &g, &date, &n.Title, &n.Sticker, &n.Words, &n.Checksum, &n.UpdatedAt)
	n.Granularity = periodic.Granularity(g)
	n.Date = time.Unix(date, 0).In(time.Local)
	return n, err
}

func scanOne(row *sql.Row, key string) (*models.PeriodicNote, error) {
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: scan: %w", err)
	}
	return &n, nil
}

func scanAll(rows *sql.Rows) ([]models.PeriodicNote, error) {
	defer rows.Close()
	var out []models.PeriodicNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
