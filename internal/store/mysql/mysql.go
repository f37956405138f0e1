// Package mysql provides the MySQL/MariaDB attendance backend. Like the
// PostgreSQL backend the (identity, day) uniqueness is a schema constraint,
// implemented with INSERT IGNORE.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Store is the MySQL implementation of store.Store.
type Store struct {
	db *sql.DB
}

// Open connects to the database and ensures the attendance table exists.
// The DSN should include parseTime=true; it is appended when missing.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql DSN is required")
	}

	db, err := sql.Open("mysql", ensureParseTime(dsn))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func ensureParseTime(dsn string) string {
	for i := len(dsn) - 1; i >= 0; i-- {
		if dsn[i] == '?' {
			return dsn + "&parseTime=true"
		}
		if dsn[i] == '/' {
			break
		}
	}
	return dsn + "?parseTime=true"
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance (
			id         CHAR(36) PRIMARY KEY,
			identity   VARCHAR(255) NOT NULL,
			day        DATE NOT NULL,
			first_seen DATETIME(6) NOT NULL,
			UNIQUE KEY uniq_identity_day (identity, day),
			KEY idx_day_first_seen (day, first_seen)
		)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Append inserts the record unless its (identity, day) key already exists.
func (s *Store) Append(ctx context.Context, record store.Record) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO attendance (id, identity, day, first_seen)
		 VALUES (?, ?, ?, ?)`,
		record.ID, record.Identity, record.Day, record.FirstSeen.UTC())
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
	var record store.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, identity, DATE_FORMAT(day, '%Y-%m-%d'), first_seen
		 FROM attendance WHERE identity = ? AND day = ?`,
		identityName, day).
		Scan(&record.ID, &record.Identity, &record.Day, &record.FirstSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	return &record, nil
}

// ListDay returns the day's records ordered by first sighting.
func (s *Store) ListDay(ctx context.Context, day string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity, DATE_FORMAT(day, '%Y-%m-%d'), first_seen
		 FROM attendance WHERE day = ? ORDER BY first_seen`,
		day)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var record store.Record
		if err := rows.Scan(&record.ID, &record.Identity, &record.Day, &record.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
