// Package stats holds the store's monotonic activity counters (C6):
// inserted, deleted, pruned. Automatic evictions caused by admission
// increment Pruned; an explicit Del/DelGroup call increments Deleted by
// exactly one, regardless of how many messages it removed (the ingest
// path skips the increment for a DelGroup call that removes nothing).
package stats

import "sync"

// Counters is a snapshot of the current counter values.
type Counters struct {
	Inserted uint64
	Deleted  uint64
	Pruned   uint64
}

// Stats guards the three counters behind one lock, held briefly per
// mutation (§5).
type Stats struct {
	mu       sync.Mutex
	inserted uint64
	deleted  uint64
	pruned   uint64
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

// IncInserted records one successful admission.
func (s *Stats) IncInserted() {
	s.mu.Lock()
	s.inserted++
	s.mu.Unlock()
}

// IncDeleted records one explicit Del/DelGroup call.
func (s *Stats) IncDeleted() {
	s.mu.Lock()
	s.deleted++
	s.mu.Unlock()
}

// AddPruned records n messages burned by the admission algorithm.
func (s *Stats) AddPruned(n uint64) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.pruned += n
	s.mu.Unlock()
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counters{Inserted: s.inserted, Deleted: s.deleted, Pruned: s.pruned}
}

// Reset zeroes every counter, supplementing the core stats API with the
// maintenance-window reset the original implementation exposed.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = 0
	s.deleted = 0
	s.pruned = 0
}
