// Package cache keeps a bounded set of chapters (text plus their pagination)
// resident in memory and reconciles that set against the reading position.
package cache

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/xxMudCloudxx/Novel-sub000/book"
	"github.com/xxMudCloudxx/Novel-sub000/paginate"
)

const DefaultMaxResidentChapters = 12

// Entry is owned exclusively by the store. PageData is populated lazily once
// a viewport is known.
type Entry struct {
	Chapter    book.Chapter
	RawContent string
	PageData   *paginate.PageData
}

type slot struct {
	entry Entry
	age   uint64
}

// Store is the single mutable shared resource of the engine. A coarse lock
// guards all access - contention is low and correctness matters more than
// parallelism here.
type Store struct {
	mu          sync.Mutex
	maxResident int
	entries     map[string]*slot
	seq         uint64
	current     string
	window      map[string]struct{}
	log         *zap.Logger
}

func NewStore(maxResident int, log *zap.Logger) *Store {
	if maxResident < 1 {
		maxResident = DefaultMaxResidentChapters
	}
	return &Store{
		maxResident: maxResident,
		entries:     make(map[string]*slot),
		window:      make(map[string]struct{}),
		log:         log,
	}
}

func (s *Store) MaxResident() int {
	return s.maxResident
}

// SetFocus records the active chapter and the target preload window so
// capacity eviction knows what must stay resident. The active chapter is
// never evicted.
func (s *Store) SetFocus(currentID string, windowIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = currentID
	s.window = make(map[string]struct{}, len(windowIDs))
	for _, id := range windowIDs {
		s.window[id] = struct{}{}
	}
}

func (s *Store) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	s.seq++
	sl.age = s.seq
	return sl.entry, true
}

// Put inserts or replaces an entry. When capacity is exceeded the
// least-recently-associated entry outside the current window is evicted.
func (s *Store) Put(id string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if sl, ok := s.entries[id]; ok {
		sl.entry = e
		sl.age = s.seq
		return
	}
	s.entries[id] = &slot{entry: e, age: s.seq}

	for len(s.entries) > s.maxResident {
		victim := s.pickVictim()
		if len(victim) == 0 {
			// everything resident is protected, accept the overshoot
			s.log.Warn("Chapter cache over capacity with no evictable entry", zap.Int("resident", len(s.entries)))
			return
		}
		delete(s.entries, victim)
		s.log.Debug("Evicted chapter over capacity", zap.String("chapter", victim))
	}
}

// pickVictim returns the oldest entry outside the window, falling back to the
// oldest non-current entry. Callers hold the lock.
func (s *Store) pickVictim() string {
	var (
		victim      string
		victimAge   uint64
		fallback    string
		fallbackAge uint64
	)
	for id, sl := range s.entries {
		if id == s.current {
			continue
		}
		if len(fallback) == 0 || sl.age < fallbackAge {
			fallback, fallbackAge = id, sl.age
		}
		if _, protected := s.window[id]; protected {
			continue
		}
		if len(victim) == 0 || sl.age < victimAge {
			victim, victimAge = id, sl.age
		}
	}
	if len(victim) != 0 {
		return victim
	}
	return fallback
}

// Evict removes the entry unless it belongs to the active chapter.
func (s *Store) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.current {
		return
	}
	delete(s.entries, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) ResidentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetPageData attaches pagination to an already resident chapter.
func (s *Store) SetPageData(id string, pd *paginate.PageData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.entries[id]
	if !ok {
		return false
	}
	sl.entry.PageData = pd
	return true
}

// InvalidatePagination drops PageData on every resident entry. Raw content
// stays so re-pagination does not refetch.
func (s *Store) InvalidatePagination() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sl := range s.entries {
		sl.entry.PageData = nil
	}
}

// PaginatedSnapshot returns a read-only map of chapter id to PageData for
// every resident chapter that has been paginated. The snapshot is derived,
// never the authoritative copy.
func (s *Store) PaginatedSnapshot() map[string]*paginate.PageData {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*paginate.PageData, len(s.entries))
	for id, sl := range s.entries {
		if sl.entry.PageData != nil {
			out[id] = sl.entry.PageData
		}
	}
	return out
}

// Shutdown drops all resident entries. The store is unusable afterwards only
// in the sense that everything must be refetched - no goroutines are owned.
func (s *Store) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*slot)
	s.window = make(map[string]struct{})
	s.current = ""
}
