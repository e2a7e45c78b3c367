package listener

import (
	"slices"
	"sync"
)

// Set is an ordered, duplicate-free collection of listeners.
// It is safe for concurrent use.
type Set[E Executor[E]] struct {
	mu        sync.Mutex
	listeners []*Listener[E]
}

// NewSet creates an empty set.
func NewSet[E Executor[E]]() *Set[E] {
	return &Set[E]{}
}

func (s *Set[E]) search(l *Listener[E]) (int, bool) {
	return slices.BinarySearchFunc(s.listeners, l, (*Listener[E]).Compare)
}

// Add inserts l unless an equal listener is already present.
func (s *Set[E]) Add(l *Listener[E]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, found := s.search(l)
	if found {
		return false
	}
	s.listeners = slices.Insert(s.listeners, idx, l)
	return true
}

// Remove deletes the listener equal to probe and returns the stored one.
func (s *Set[E]) Remove(probe *Listener[E]) (*Listener[E], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, found := s.search(probe)
	if !found {
		return nil, false
	}
	stored := s.listeners[idx]
	s.listeners = slices.Delete(s.listeners, idx, idx+1)
	return stored, true
}

// Contains reports whether a listener equal to probe is present.
func (s *Set[E]) Contains(probe *Listener[E]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.search(probe)
	return found
}

// Len returns the number of listeners.
func (s *Set[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// All returns the listeners in order.
func (s *Set[E]) All() []*Listener[E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.listeners)
}

// Clear empties the set and returns the listeners it held.
func (s *Set[E]) Clear() []*Listener[E] {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.listeners
	s.listeners = nil
	return removed
}
