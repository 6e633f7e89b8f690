package audit

import (
	"context"

	id "vigil/pkg/domain"
)

// Store persists audit events. Implementations: in-memory (tests, single
// node) and postgres outbox (production, drained to Kafka by the worker).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVisit(ctx context.Context, visitID id.VisitID) ([]Event, error)
}
