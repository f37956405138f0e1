package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// AttendanceStore is the PostgreSQL implementation of store.Store.
type AttendanceStore struct {
	pool *Pool
}

// NewAttendanceStore creates a PostgreSQL attendance store.
func NewAttendanceStore(pool *Pool) *AttendanceStore {
	return &AttendanceStore{pool: pool}
}

// Append inserts the record unless its (identity, day) key already exists.
// The unique constraint makes the check-and-insert a single atomic statement.
func (s *AttendanceStore) Append(ctx context.Context, record store.Record) (bool, error) {
	res, err := s.pool.Exec(ctx,
		`INSERT INTO attendance (id, identity, day, first_seen)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (identity, day) DO NOTHING`,
		record.ID, record.Identity, record.Day, record.FirstSeen)
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
func (s *AttendanceStore) Get(ctx context.Context, identityName, day string) (*store.Record, error) {
	var record store.Record
	err := s.pool.QueryRow(ctx,
		`SELECT id, identity, to_char(day, 'YYYY-MM-DD'), first_seen
		 FROM attendance WHERE identity = $1 AND day = $2`,
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
func (s *AttendanceStore) ListDay(ctx context.Context, day string) ([]store.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity, to_char(day, 'YYYY-MM-DD'), first_seen
		 FROM attendance WHERE day = $1 ORDER BY first_seen`,
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

// Close closes the underlying pool.
func (s *AttendanceStore) Close() error {
	return s.pool.Close()
}
