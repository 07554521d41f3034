package template

import "sync"

// SequenceStore holds the named counters behind {{sequence("name")}}.
type SequenceStore struct {
	mu   sync.Mutex
	next map[string]int64
}

// NewSequenceStore returns an empty store.
func NewSequenceStore() *SequenceStore {
	return &SequenceStore{next: make(map[string]int64)}
}

// Next returns the value for name and advances it. A name seen for the
// first time starts at start.
func (s *SequenceStore) Next(name string, start int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.next[name]
	if !ok {
		v = start
	}
	s.next[name] = v + 1
	return v
}

// Current returns the value Next would hand out for name, or 0 for an
// unknown name.
func (s *SequenceStore) Current(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next[name]
}

// Reset forgets name, so it restarts from its start value.
func (s *SequenceStore) Reset(name string) {
	s.mu.Lock()
	delete(s.next, name)
	s.mu.Unlock()
}

// Clear forgets every sequence.
func (s *SequenceStore) Clear() {
	s.mu.Lock()
	clear(s.next)
	s.mu.Unlock()
}
