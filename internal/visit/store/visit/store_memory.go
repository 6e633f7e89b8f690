package visit

import (
	"context"
	"sort"
	"sync"

	"vigil/internal/visit/models"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// InMemory stores visits for tests and single-node runs. Copies go in and
// out so callers can never mutate stored state directly.
//
// Execute serializes transitions per visit id with a dedicated mutex, the
// in-memory equivalent of the postgres row lock: two concurrent
// transitions on the same visit queue behind each other, and the loser's
// validate sees the winner's write.
type InMemory struct {
	mu      sync.RWMutex
	visits  map[id.VisitID]models.Visit
	history map[id.VisitID][]models.RescheduleEntry

	locksMu sync.Mutex
	locks   map[id.VisitID]*sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		visits:  make(map[id.VisitID]models.Visit),
		history: make(map[id.VisitID][]models.RescheduleEntry),
		locks:   make(map[id.VisitID]*sync.Mutex),
	}
}

func (s *InMemory) Create(_ context.Context, visit *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.visits[visit.ID]; exists {
		return sentinel.ErrConflict
	}
	s.visits[visit.ID] = *visit
	return nil
}

func (s *InMemory) FindByID(_ context.Context, visitID id.VisitID) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visits[visitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := v
	return &copied, nil
}

func (s *InMemory) ListByOfficer(_ context.Context, officerID id.OfficerID) ([]*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var visits []*models.Visit
	for _, v := range s.visits {
		if v.OfficerID == officerID {
			copied := v
			visits = append(visits, &copied)
		}
	}
	sort.Slice(visits, func(i, j int) bool {
		return visits[i].ScheduledAt.Before(visits[j].ScheduledAt)
	})
	return visits, nil
}

// Execute atomically validates and mutates a visit under its per-id lock,
// returning the updated copy with the version bumped.
func (s *InMemory) Execute(
	_ context.Context,
	visitID id.VisitID,
	validate func(*models.Visit) error,
	mutate func(*models.Visit),
) (*models.Visit, error) {
	lock := s.visitLock(visitID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	v, ok := s.visits[visitID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	if err := validate(&v); err != nil {
		return nil, err
	}
	mutate(&v)
	v.Version++

	s.mu.Lock()
	s.visits[visitID] = v
	s.mu.Unlock()

	copied := v
	return &copied, nil
}

func (s *InMemory) AppendRescheduleHistory(_ context.Context, entry models.RescheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.VisitID] = append(s.history[entry.VisitID], entry)
	return nil
}

func (s *InMemory) ListRescheduleHistory(_ context.Context, visitID id.VisitID) ([]models.RescheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[visitID]
	out := make([]models.RescheduleEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *InMemory) visitLock(visitID id.VisitID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[visitID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[visitID] = lock
	}
	return lock
}
