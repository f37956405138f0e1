// Package store defines the durable attendance sink contract. Backends only
// need append-if-absent semantics per (identity, day) key plus ordered
// listing; the ledger layers the per-key serialization and outcome semantics
// on top.
package store

import (
	"context"
	"time"
)

// DayFormat is the calendar-date key format.
const DayFormat = "2006-01-02"

// Record is one attendance event. At most one record exists per
// (Identity, Day); FirstSeen is the timestamp of the first sighting.
type Record struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Day       string    `json:"day"` // calendar date in the ledger time zone, DayFormat
	FirstSeen time.Time `json:"first_seen"`
}

// Store persists attendance records.
//
// Append inserts the record unless one already exists for its
// (Identity, Day) key; it reports whether the insert happened. Backends with
// a transactional uniqueness constraint may rely on it entirely; others must
// make the existence check and insert atomic with respect to concurrent
// Appends for the same key within the process, since the ledger additionally
// serializes same-key callers.
//
// ListDay returns the day's records ordered by FirstSeen ascending.
type Store interface {
	Append(ctx context.Context, record Record) (inserted bool, err error)
	Get(ctx context.Context, identityName, day string) (*Record, error)
	ListDay(ctx context.Context, day string) ([]Record, error)
	Close() error
}
