// Package publisher decouples audit emission from persistence. Domain
// services call Emit; the publisher either writes synchronously or hands
// the event to a buffered goroutine so transition latency is unaffected.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "vigil/pkg/domain"
	audit "vigil/pkg/platform/audit"
	txcontext "vigil/pkg/platform/tx"
)

// Publisher fans audit events into a Store, optionally asynchronously.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
// Events are drained on Close. With a full buffer Emit falls back to a
// synchronous write rather than dropping the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for background write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a Publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event. In async mode the write happens in the
// background; errors are logged, never returned, because a failed audit
// write must not abort the domain transition that produced it. In sync
// mode the error is returned so transactional callers can roll back.
//
// A context carrying a SQL transaction always writes synchronously,
// regardless of mode: the event must join that transaction, and the
// background goroutine cannot.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if _, inTx := txcontext.From(ctx); inTx {
		return p.store.Append(ctx, event)
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		// Buffer full: degrade to synchronous write.
		return p.store.Append(ctx, event)
	}
}

// List returns the audit trail for a visit.
func (p *Publisher) List(ctx context.Context, visitID id.VisitID) ([]audit.Event, error) {
	return p.store.ListByVisit(ctx, visitID)
}

// Close drains any buffered events and stops the background writer.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"visit_id", event.VisitID,
				"error", err,
			)
		}
	}
}
