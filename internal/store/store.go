// Package store persists per-player match results in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id           TEXT PRIMARY KEY,
	capture_id   TEXT NOT NULL,
	slot         INTEGER NOT NULL,
	name         TEXT NOT NULL,
	raw          TEXT NOT NULL,
	matched      INTEGER NOT NULL,
	calibration  TEXT NOT NULL,
	captured_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_matches_captured_at ON matches(captured_at);
CREATE INDEX IF NOT EXISTS idx_matches_name ON matches(name) WHERE matched = 1;
`

// Fixed width so captured_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one player's result from one capture.
type Record struct {
	ID          string    `json:"id"`
	CaptureID   string    `json:"capture_id"`
	Slot        int       `json:"slot"`
	Name        string    `json:"name,omitempty"`
	Raw         string    `json:"raw"`
	Matched     bool      `json:"matched"`
	Calibration string    `json:"calibration"`
	CapturedAt  time.Time `json:"captured_at"`
}

// NameCount is how often a fighter was matched.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Store manages match history.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and applies the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "open db").WithMetadata("path", path)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "migrate").WithMetadata("path", path)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes records in one transaction. Records without an ID get one.
func (s *Store) Insert(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStoreFailed, "begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (id, capture_id, slot, name, raw, matched, calibration, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStoreFailed, "prepare insert")
	}
	defer stmt.Close()

	for i := range recs {
		r := &recs[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.CaptureID, r.Slot, r.Name, r.Raw, r.Matched,
			r.Calibration, r.CapturedAt.UTC().Format(timeLayout)); err != nil {
			return apperrors.Wrapf(err, apperrors.CodeStoreFailed, "insert record %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStoreFailed, "commit")
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, capture_id, slot, name, raw, matched, calibration, captured_at
		 FROM matches ORDER BY captured_at DESC, slot ASC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "query recent")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var at string
		if err := rows.Scan(&r.ID, &r.CaptureID, &r.Slot, &r.Name, &r.Raw, &r.Matched, &r.Calibration, &at); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "scan record")
		}
		if r.CapturedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse captured_at %q: %w", at, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "iterate records")
	}
	return out, nil
}

// Counts returns matched fighters by frequency, most picked first.
func (s *Store) Counts(ctx context.Context) ([]NameCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, COUNT(*) FROM matches WHERE matched = 1
		 GROUP BY name ORDER BY COUNT(*) DESC, name ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "query counts")
	}
	defer rows.Close()

	var out []NameCount
	for rows.Next() {
		var c NameCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "scan count")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
