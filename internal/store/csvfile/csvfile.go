// Package csvfile provides the legacy CSV attendance backend: an append-only
// attendance.csv whose first three columns (Name, Date, Time) match the
// original spreadsheet-friendly layout. The file is guarded by an exclusive
// flock, so exactly one process writes it; the in-memory key index is
// therefore authoritative for dedup.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/kozaktomas/face-attendance/internal/store"
)

var header = []string{"Name", "Date", "Time", "ID"}

// ErrLocked reports that another process holds the attendance file.
var ErrLocked = errors.New("attendance file is locked by another process")

// Store is the CSV implementation of store.Store.
type Store struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	writer  *csv.Writer
	lock    *flock.Flock
	records map[key]store.Record
}

type key struct {
	identity string
	day      string
}

// Open opens or creates the attendance CSV and loads its existing rows.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("attendance file path is required")
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock attendance file: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	records, err := loadExisting(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open attendance file: %w", err)
	}

	s := &Store{
		path:    path,
		file:    file,
		writer:  csv.NewWriter(file),
		lock:    lock,
		records: records,
	}

	if writeHeader {
		if err := s.writeRow(header); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// loadExisting reads prior attendance rows into the key index.
func loadExisting(path string) (map[key]store.Record, error) {
	records := make(map[key]store.Record)

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read attendance file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate legacy three-column rows
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse attendance file: %w", err)
		}
		if len(row) < 3 || row[0] == header[0] {
			continue
		}

		record := store.Record{Identity: row[0], Day: row[1]}
		if ts, err := time.Parse(time.RFC3339Nano, row[2]); err == nil {
			record.FirstSeen = ts
		} else if ts, err := time.ParseInLocation(
			store.DayFormat+" 15:04:05", row[1]+" "+row[2], time.Local); err == nil {
			// Legacy rows carry a local wall-clock time.
			record.FirstSeen = ts
		} else {
			continue
		}
		if len(row) >= 4 {
			record.ID = row[3]
		}

		k := key{identity: record.Identity, day: record.Day}
		if _, ok := records[k]; !ok {
			records[k] = record
		}
	}
	return records, nil
}

func (s *Store) writeRow(row []string) error {
	s.writer.Write(row)
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("write attendance row: %w", err)
	}
	return nil
}

// Append writes the record unless its (identity, day) key already exists.
func (s *Store) Append(ctx context.Context, record store.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{identity: record.Identity, day: record.Day}
	if _, ok := s.records[k]; ok {
		return false, nil
	}

	row := []string{
		record.Identity,
		record.Day,
		record.FirstSeen.Format(time.RFC3339Nano),
		record.ID,
	}
	if err := s.writeRow(row); err != nil {
		return false, err
	}
	s.records[k] = record
	return true, nil
}

// Get returns the record for an (identity, day) key, or nil.
func (s *Store) Get(ctx context.Context, identityName, day string) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[key{identity: identityName, day: day}]; ok {
		return &record, nil
	}
	return nil, nil
}

// ListDay returns the day's records ordered by first sighting.
func (s *Store) ListDay(ctx context.Context, day string) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

// Close flushes, releases the file lock and closes the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
