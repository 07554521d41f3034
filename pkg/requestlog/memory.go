package requestlog

import (
	"strings"
	"sync"
	"time"

	"github.com/getmockd/intercept/internal/id"
)

// DefaultCapacity is the entry limit of a MemoryStore created with a
// non-positive capacity.
const DefaultCapacity = 1000

// MemoryStore is a Store and Updater backed by an in-memory FIFO buffer.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []*Entry
	maxEntries int
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Updater = (*MemoryStore)(nil)
)

// NewMemoryStore creates a store holding at most maxEntries entries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultCapacity
	}
	return &MemoryStore{
		entries:    make([]*Entry, 0, min(maxEntries, 64)),
		maxEntries: maxEntries,
	}
}

// Log records an entry, assigning an ID and timestamp when unset. The
// oldest entry is evicted at capacity.
func (s *MemoryStore) Log(entry *Entry) {
	if entry == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = id.TimeOrdered()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if len(s.entries) >= s.maxEntries {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry)
}

// Get retrieves an entry by ID.
func (s *MemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

// List returns entries newest first, optionally filtered.
func (s *MemoryStore) List(filter *Filter) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if filter != nil && !filter.Matches(entry) {
			continue
		}
		result = append(result, entry)
	}

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(result) {
				return []*Entry{}
			}
			result = result[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(result) {
			result = result[:filter.Limit]
		}
	}
	return result
}

// Matches reports whether an entry satisfies every set criterion.
// Limit and Offset are ignored.
func (f *Filter) Matches(entry *Entry) bool {
	if f.Outcome != "" && entry.Outcome != f.Outcome {
		return false
	}
	if f.Method != "" && entry.Method != f.Method {
		return false
	}
	if f.Host != "" && entry.Host != f.Host {
		return false
	}
	if f.Path != "" && !strings.HasPrefix(entry.Path, f.Path) {
		return false
	}
	if f.MatchedID != "" && entry.MatchedID != f.MatchedID {
		return false
	}
	if f.StatusCode != 0 && entry.ResponseStatus != f.StatusCode {
		return false
	}
	if f.HasError != nil && *f.HasError != (entry.Error != "") {
		return false
	}
	return true
}

// Update replaces the entry with a copy modified by fn. Pointers returned
// earlier by Get or List keep the old values. It reports whether the entry
// was found.
func (s *MemoryStore) Update(id string, fn func(*Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.entries {
		if entry.ID == id {
			updated := *entry
			fn(&updated)
			updated.ID = id
			s.entries[i] = &updated
			return true
		}
	}
	return false
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0:0]
}

// Count returns the number of entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
