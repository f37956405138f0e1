// Package memory provides an in-memory attendance store. It backs tests
// (with error injection, so persistence failures are reproducible) and the
// "memory" ledger backend for throwaway deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/store"
)

type key struct {
	identity string
	day      string
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	records map[key]store.Record

	// Error injection for tests.
	AppendError  error
	GetError     error
	ListDayError error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[key]store.Record)}
}

// Append inserts the record unless its (identity, day) key already exists.
func (s *Store) Append(ctx context.Context, record store.Record) (bool, error) {
	if s.AppendError != nil {
		return false, s.AppendError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{identity: record.Identity, day: record.Day}
	if _, ok := s.records[k]; ok {
		return false, nil
	}
	s.records[k] = record
	return true, nil
}

// Get returns the record for an (identity, day) key, or nil.
func (s *Store) Get(ctx context.Context, identityName, day string) (*store.Record, error) {
	if s.GetError != nil {
		return nil, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[key{identity: identityName, day: day}]; ok {
		return &record, nil
	}
	return nil, nil
}

// ListDay returns the day's records ordered by first sighting.
func (s *Store) ListDay(ctx context.Context, day string) ([]store.Record, error) {
	if s.ListDayError != nil {
		return nil, s.ListDayError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []store.Record
	for k, record := range s.records {
		if k.day == day {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].FirstSeen.Before(records[j].FirstSeen)
	})
	return records, nil
}

// Count returns the total number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
