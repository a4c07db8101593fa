package history

import (
	"context"
	"sync"
)

// DefaultCapacity bounds the in-memory store when no capacity is configured.
const DefaultCapacity = 5000

// MemoryStore is a volatile history bounded to a fixed number of entries.
// When full, the least-recently-inserted ID is evicted (FIFO). Lookups never
// refresh recency, so a frequently-edited old video still ages out.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	ids      map[string]struct{}
	order    []string // insertion order, oldest first
}

// NewMemoryStore creates a bounded in-memory store. A capacity <= 0 falls
// back to DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Has reports whether the video ID is currently cached.
func (s *MemoryStore) Has(_ context.Context, videoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ids[videoID]
	return ok, nil
}

// Add records the video ID, evicting the oldest entry when at capacity.
// Adding a known ID is a no-op and does not move it in the eviction order.
func (s *MemoryStore) Add(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[videoID]; ok {
		return nil
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}

	s.ids[videoID] = struct{}{}
	s.order = append(s.order, videoID)
	return nil
}

// Len returns the current number of cached IDs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}
