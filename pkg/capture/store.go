package capture

import (
	"sync"
	"time"
)

// DefaultCapacity is used when a Store is created with a non-positive capacity.
const DefaultCapacity = 500

// Store is the bounded, insertion-ordered collection of captured requests.
// It is safe for concurrent use by one or more writers and readers.
type Store struct {
	mu       sync.RWMutex
	records  []*Record
	byID     map[int64]*Record
	capacity int
	nextID   int64
}

// NewStore creates a Store that retains at most capacity records.
// Non-positive capacities fall back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		records:  make([]*Record, 0, capacity),
		byID:     make(map[int64]*Record, capacity),
		capacity: capacity,
	}
}

// Insert assigns the next ID to rec, appends it as the newest record and
// evicts the oldest record if the store is over capacity. Eviction happens in
// the same critical section, so readers never observe more than capacity
// records. Returns the assigned ID.
func (s *Store) Insert(rec *Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	s.records = append(s.records, rec)
	s.byID[rec.ID] = rec
	if len(s.records) > s.capacity {
		oldest := s.records[0]
		s.records = s.records[1:]
		delete(s.byID, oldest.ID)
	}
	return rec.ID
}

// Get returns the record with the given ID, or false if the ID was never
// assigned or the record has been evicted.
func (s *Store) Get(id int64) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}

// List returns summaries of all retained records in insertion order.
// The result is a consistent snapshot copied out under the lock; callers may
// serialize it without blocking writers.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Summary())
	}
	return out
}

// Clear removes all retained records and returns how many were dropped.
// IDs keep increasing across a Clear.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	s.records = make([]*Record, 0, s.capacity)
	s.byID = make(map[int64]*Record, s.capacity)
	return n
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Capacity returns the maximum number of retained records.
func (s *Store) Capacity() int {
	return s.capacity
}
