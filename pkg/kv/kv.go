package kv

import (
	"slices"
	"sync"
)

// Set is the broadcast value set. It only grows: there is no delete, so a
// value once added is reported by every later Snapshot.
type Set struct {
	mu   sync.RWMutex
	data map[int]struct{}
}

func NewSet() *Set {
	return &Set{data: make(map[int]struct{})}
}

// Add inserts v and reports whether it was new.
func (s *Set) Add(v int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[v]; ok {
		return false
	}
	s.data[v] = struct{}{}
	return true
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot returns a sorted copy; later Adds do not affect it.
func (s *Set) Snapshot() []int {
	s.mu.RLock()
	out := make([]int, 0, len(s.data))
	for v := range s.data {
		out = append(out, v)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}
