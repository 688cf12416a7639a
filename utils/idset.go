package utils

import "sync"

// IDSet is a thread-safe set of thread ids.
type IDSet struct {
	mu   sync.RWMutex
	seen map[int64]struct{}
}

// NewIDSet creates a set holding ids.
func NewIDSet(ids ...int64) *IDSet {
	s := &IDSet{seen: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return s
}

// Add returns true if the id was newly added, false if already present.
func (s *IDSet) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Contains returns true if the id is in the set.
func (s *IDSet) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[id]
	return exists
}

// Size returns the number of unique ids tracked.
func (s *IDSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Difference returns the ids of ordered that are not in the set, keeping
// their original order. Duplicates in ordered are returned once.
func (s *IDSet) Difference(ordered []int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(ordered))
	emitted := make(map[int64]struct{}, len(ordered))
	for _, id := range ordered {
		if _, skip := s.seen[id]; skip {
			continue
		}
		if _, dup := emitted[id]; dup {
			continue
		}
		emitted[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
