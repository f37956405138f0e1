// Package ledger enforces the one-record-per-identity-per-day attendance
// contract. The ledger is the only writer of durable attendance state;
// concurrent sightings of the same person collapse into a single record
// carrying the earliest timestamp.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Status reports what Record did for a sighting.
type Status string

const (
	// StatusRecorded means a new attendance record was persisted.
	StatusRecorded Status = "recorded"
	// StatusAlreadyPresent means the identity was already recorded for the day.
	StatusAlreadyPresent Status = "already_present"
)

// Outcome is the result of a Record call.
type Outcome struct {
	Status Status
	Record store.Record
}

// PersistenceError reports that the durable sink failed. It is distinct from
// AlreadyPresent so callers can retry with the same (identity, day) key
// without risking silent loss or duplication.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("attendance persistence failed (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err is a ledger persistence failure.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// lockShards bounds the per-key mutex table. Different keys may map to the
// same shard; that only costs a little parallelism, never correctness.
const lockShards = 64

// Ledger records deduplicated attendance against a Store.
type Ledger struct {
	store   store.Store
	loc     *time.Location
	timeout time.Duration
	logger  *slog.Logger
	locks   [lockShards]sync.Mutex
}

// New creates a ledger. loc defines the calendar day a timestamp belongs to;
// timeout bounds every store call (zero disables the bound).
func New(s store.Store, loc *time.Location, timeout time.Duration, logger *slog.Logger) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   s,
		loc:     loc,
		timeout: timeout,
		logger:  logger,
	}
}

// Day returns the calendar-date key for a timestamp in the ledger time zone.
func (l *Ledger) Day(at time.Time) string {
	return at.In(l.loc).Format(store.DayFormat)
}

func (l *Ledger) shard(identityName, day string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(identityName))
	h.Write([]byte{0})
	h.Write([]byte(day))
	return &l.locks[h.Sum32()%lockShards]
}

func (l *Ledger) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

// Record marks identityName present at the given time. The first call for a
// (identity, day) key persists a record with the sighting time and returns
// StatusRecorded; later calls for the same key return StatusAlreadyPresent
// with the existing record and change nothing. The check-then-write is
// serialized per key, so concurrent sightings cannot produce two records.
// Store failures surface as *PersistenceError and are safe to retry.
func (l *Ledger) Record(ctx context.Context, identityName string, at time.Time) (Outcome, error) {
	if identityName == "" {
		return Outcome{}, &PersistenceError{Op: "record", Err: errors.New("empty identity")}
	}

	day := l.Day(at)
	mu := l.shard(identityName, day)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := l.storeCtx(ctx)
	defer cancel()

	existing, err := l.store.Get(sctx, identityName, day)
	if err != nil {
		return Outcome{}, &PersistenceError{Op: "lookup", Err: err}
	}
	if existing != nil {
		return Outcome{Status: StatusAlreadyPresent, Record: *existing}, nil
	}

	record := store.Record{
		ID:        uuid.NewString(),
		Identity:  identityName,
		Day:       day,
		FirstSeen: at,
	}

	inserted, err := l.store.Append(sctx, record)
	if err != nil {
		return Outcome{}, &PersistenceError{Op: "append", Err: err}
	}
	if !inserted {
		// Another writer (a second process sharing the backend) got there
		// first; surface its record instead of ours.
		existing, err := l.store.Get(sctx, identityName, day)
		if err != nil || existing == nil {
			return Outcome{}, &PersistenceError{Op: "reread", Err: err}
		}
		return Outcome{Status: StatusAlreadyPresent, Record: *existing}, nil
	}

	l.logger.Info("attendance recorded", "identity", identityName, "day", day)
	return Outcome{Status: StatusRecorded, Record: record}, nil
}

// Query returns the attendance record for an identity on the day containing
// at, or nil if none exists.
func (l *Ledger) Query(ctx context.Context, identityName string, at time.Time) (*store.Record, error) {
	sctx, cancel := l.storeCtx(ctx)
	defer cancel()

	record, err := l.store.Get(sctx, identityName, l.Day(at))
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return record, nil
}

// QueryDay is Query with an explicit calendar-date key.
func (l *Ledger) QueryDay(ctx context.Context, identityName, day string) (*store.Record, error) {
	sctx, cancel := l.storeCtx(ctx)
	defer cancel()

	record, err := l.store.Get(sctx, identityName, day)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return record, nil
}

// List returns a day's records ordered by first sighting.
func (l *Ledger) List(ctx context.Context, day string) ([]store.Record, error) {
	sctx, cancel := l.storeCtx(ctx)
	defer cancel()

	records, err := l.store.ListDay(sctx, day)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return records, nil
}
