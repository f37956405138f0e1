// Package gallery holds the set of known (identity, embedding) reference
// pairs the matcher searches. The current gallery is an immutable snapshot
// behind an atomically swappable reference: reloads install a complete
// replacement and in-flight matches keep the snapshot they started with.
package gallery

import (
	"sort"
	"sync/atomic"
	"time"
)

// Entry is one reference embedding for an identity. An identity may have
// several entries (one per reference photo); matching considers all of them.
type Entry struct {
	Identity   string
	Embedding  []float32
	SourceFile string
	BBox       []float64 // bounding box of the chosen face in the reference image
}

// WarningReason classifies gallery load warnings.
type WarningReason string

const (
	// ReasonNoFace means no face was detected in a reference image.
	ReasonNoFace WarningReason = "no_face"
	// ReasonAmbiguous means several faces were detected; the largest
	// bounding box was used.
	ReasonAmbiguous WarningReason = "ambiguous"
)

// Warning records a non-fatal problem with a single reference image.
type Warning struct {
	File     string        `json:"file"`
	Identity string        `json:"identity"`
	Reason   WarningReason `json:"reason"`
}

// Snapshot is an immutable view of the gallery. Entries are ordered by
// identity, then source file, so tie-breaks in the matcher are deterministic.
type Snapshot struct {
	entries  []Entry
	warnings []Warning
	loadedAt time.Time
}

// NewSnapshot builds a snapshot from loaded entries. The input slice is
// sorted in place and must not be mutated afterwards.
func NewSnapshot(entries []Entry, warnings []Warning) *Snapshot {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Identity != entries[j].Identity {
			return entries[i].Identity < entries[j].Identity
		}
		return entries[i].SourceFile < entries[j].SourceFile
	})
	return &Snapshot{
		entries:  entries,
		warnings: warnings,
		loadedAt: time.Now(),
	}
}

// Entries returns the ordered reference entries. Callers must not modify
// the returned slice.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// Warnings returns the non-fatal problems encountered during load.
func (s *Snapshot) Warnings() []Warning {
	return s.warnings
}

// LoadedAt returns when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Len returns the number of reference entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Identities returns the distinct identity names with their entry counts,
// ordered by name.
func (s *Snapshot) Identities() []IdentityCount {
	counts := make(map[string]int)
	var order []string
	for _, e := range s.entries {
		if counts[e.Identity] == 0 {
			order = append(order, e.Identity)
		}
		counts[e.Identity]++
	}
	result := make([]IdentityCount, 0, len(order))
	for _, name := range order {
		result = append(result, IdentityCount{Name: name, Entries: counts[name]})
	}
	return result
}

// IdentityCount summarizes one identity in the gallery.
type IdentityCount struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Store publishes the current gallery snapshot. Swap is atomic: readers
// either see the whole old snapshot or the whole new one, never a mix.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewSnapshot(nil, nil))
	return s
}

// Snapshot returns the current gallery snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap atomically installs a replacement snapshot.
func (s *Store) Swap(next *Snapshot) {
	s.current.Store(next)
}
