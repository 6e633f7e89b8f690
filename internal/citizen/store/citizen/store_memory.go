package citizen

import (
	"context"
	"sync"

	"vigil/internal/citizen/models"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded citizen store for tests and single-node runs.
// Copies go in and out so callers can never mutate stored state directly.
type InMemory struct {
	mu       sync.RWMutex
	citizens map[id.CitizenID]models.Citizen
}

func NewInMemory() *InMemory {
	return &InMemory{citizens: make(map[id.CitizenID]models.Citizen)}
}

// Seed inserts or replaces a citizen record. Test and bootstrap helper.
func (s *InMemory) Seed(_ context.Context, citizen *models.Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.citizens[citizen.ID] = *citizen
	return nil
}

func (s *InMemory) FindByID(_ context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.citizens[citizenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := c
	return &copied, nil
}

// Execute atomically validates and mutates a citizen record under the
// store lock, returning the updated copy.
func (s *InMemory) Execute(
	_ context.Context,
	citizenID id.CitizenID,
	validate func(*models.Citizen) error,
	mutate func(*models.Citizen),
) (*models.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.citizens[citizenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	mutate(&c)
	s.citizens[citizenID] = c

	copied := c
	return &copied, nil
}
