package memory

import (
	"context"
	"sync"

	id "vigil/pkg/domain"
	audit "vigil/pkg/platform/audit"
)

// InMemoryStore keeps audit events per visit. Used in tests and single-node
// deployments where the Kafka pipeline is not wired.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.VisitID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.VisitID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.VisitID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.VisitID] = append(s.events[event.VisitID], event)
	return nil
}

func (s *InMemoryStore) ListByVisit(_ context.Context, visitID id.VisitID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[visitID]...), nil
}

// ListAll returns all audit events across visits (admin/test helper).
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, visitEvents := range s.events {
		all = append(all, visitEvents...)
	}
	return all, nil
}
