package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps journal events in process. Used in tests and single-node
// dev setups.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]Event)}
}

func (s *MemoryStore) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.EmployeeID] = append(s.events[e.EmployeeID], e)
	return nil
}

func (s *MemoryStore) ListByEmployee(_ context.Context, employeeID string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[employeeID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]Event{}, events...), nil
}
