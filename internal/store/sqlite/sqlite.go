// Package sqlite provides the default single-node attendance store, backed
// by a SQLite database file. The (identity, day) uniqueness lives in the
// schema, so the append-if-absent contract holds even across processes
// sharing the file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Store manages attendance persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the attendance database and applies the
// schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance (
			id         TEXT PRIMARY KEY,
			identity   TEXT NOT NULL,
			day        TEXT NOT NULL,
			first_seen TEXT NOT NULL,
			UNIQUE (identity, day)
		)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance (day, first_seen)")
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Append inserts the record unless its (identity, day) key already exists.
func (s *Store) Append(ctx context.Context, record store.Record) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (id, identity, day, first_seen)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (identity, day) DO NOTHING`,
		record.ID,
		record.Identity,
		record.Day,
		record.FirstSeen.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Get returns the record for an (identity, day) key, or nil.
func (s *Store) Get(ctx context.Context, identityName, day string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, identity, day, first_seen FROM attendance WHERE identity = ? AND day = ?",
		identityName, day)

	record, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	return record, nil
}

// ListDay returns the day's records ordered by first sighting.
func (s *Store) ListDay(ctx context.Context, day string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, identity, day, first_seen FROM attendance WHERE day = ? ORDER BY first_seen",
		day)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanRecord(scan func(dest ...any) error) (*store.Record, error) {
	var record store.Record
	var firstSeen string
	if err := scan(&record.ID, &record.Identity, &record.Day, &firstSeen); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, firstSeen)
	if err != nil {
		return nil, fmt.Errorf("parse first_seen %q: %w", firstSeen, err)
	}
	record.FirstSeen = ts
	return &record, nil
}
