// Package match identifies an observed face embedding against the gallery.
// Matching is a pure function of its inputs: every gallery entry is scored,
// the best score per identity is kept, and the global best identity wins if
// it clears the distance threshold.
package match

import (
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Unknown is the display label for embeddings no identity claims.
const Unknown = "Unknown"

// Result is the outcome of matching one embedding against a snapshot.
type Result struct {
	Identity string  // matched identity name, or Unknown
	Known    bool    // false when the best distance exceeds the threshold
	Distance float64 // best distance found (meaningless when the gallery is empty)
	Entry    *gallery.Entry
}

// Matcher scores embeddings against gallery snapshots with a fixed metric
// and threshold.
type Matcher struct {
	distance  DistanceFunc
	threshold float64
}

// New creates a matcher. metric is "euclidean" or "cosine"; threshold is the
// maximum distance for a positive identification (lower = stricter).
func New(metric string, threshold float64) *Matcher {
	return &Matcher{
		distance:  ForMetric(metric),
		threshold: threshold,
	}
}

// Threshold returns the configured cutoff.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scans all entries of the snapshot and returns the best identity.
// An identity with several reference entries is scored by its minimum
// distance. Ties between identities resolve to whichever entry comes first
// in snapshot order, which is fixed (identity ascending, then source file),
// so results are reproducible across runs. A distance strictly greater than
// the threshold yields Unknown no matter how many candidates exist.
func (m *Matcher) Match(embedding []float32, snapshot *gallery.Snapshot) Result {
	entries := snapshot.Entries()
	if len(entries) == 0 {
		return Result{Identity: Unknown}
	}

	best := -1
	bestDistance := 0.0
	for i := range entries {
		d := m.distance(embedding, entries[i].Embedding)
		// Strict less keeps the earliest entry on ties.
		if best == -1 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	if bestDistance > m.threshold {
		return Result{Identity: Unknown, Distance: bestDistance}
	}

	return Result{
		Identity: entries[best].Identity,
		Known:    true,
		Distance: bestDistance,
		Entry:    &entries[best],
	}
}
