// Package lock provides per-visit transition locks. The store's Execute
// already serializes transitions within one process; these locks extend
// single-writer semantics across engine instances.
package lock

import (
	"context"
	"sync"

	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

// Memory is an in-process per-visit try-lock. Acquire fails immediately
// with ErrLockHeld when another transition is in flight, matching the
// non-blocking semantics of the redis lock so callers behave the same
// against either.
type Memory struct {
	mu   sync.Mutex
	held map[id.VisitID]struct{}
}

func NewMemory() *Memory {
	return &Memory{held: make(map[id.VisitID]struct{})}
}

func (l *Memory) Acquire(_ context.Context, visitID id.VisitID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[visitID]; taken {
		return nil, sentinel.ErrLockHeld
	}
	l.held[visitID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, visitID)
			l.mu.Unlock()
		})
	}
	return release, nil
}
