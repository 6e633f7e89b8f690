package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	citizenmodels "vigil/internal/citizen/models"
	visitmetrics "vigil/internal/visit/metrics"
	"vigil/internal/visit/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/audit"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

// VisitStore persists visit aggregates. Execute serializes a
// validate-then-mutate transition under the store's per-visit lock
// (mutex in memory, SELECT ... FOR UPDATE in postgres).
type VisitStore interface {
	Create(ctx context.Context, visit *models.Visit) error
	FindByID(ctx context.Context, visitID id.VisitID) (*models.Visit, error)
	ListByOfficer(ctx context.Context, officerID id.OfficerID) ([]*models.Visit, error)
	Execute(ctx context.Context, visitID id.VisitID, validate func(*models.Visit) error, mutate func(*models.Visit)) (*models.Visit, error)
	AppendRescheduleHistory(ctx context.Context, entry models.RescheduleEntry) error
	ListRescheduleHistory(ctx context.Context, visitID id.VisitID) ([]models.RescheduleEntry, error)
}

// CitizenStore reads citizen records and mutates exactly one field,
// LifecycleStatus, on the deceased exception path.
type CitizenStore interface {
	FindByID(ctx context.Context, citizenID id.CitizenID) (*citizenmodels.Citizen, error)
	Execute(ctx context.Context, citizenID id.CitizenID, validate func(*citizenmodels.Citizen) error, mutate func(*citizenmodels.Citizen)) (*citizenmodels.Citizen, error)
}

// TransitionLock guards a visit's transitions across engine instances.
// The store's Execute already serializes within one process; the lock adds
// cross-instance single-writer semantics when deployments scale out.
type TransitionLock interface {
	Acquire(ctx context.Context, visitID id.VisitID) (release func(), err error)
}

// AuditPublisher records audit events emitted by lifecycle transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Engine owns the visit state machine: transition guards, the geofence
// start gate, and the side effects of each transition.
type Engine struct {
	visits   VisitStore
	citizens CitizenStore
	tx       StoreTx
	locks    TransitionLock
	emitter  *auditEmitter
	metrics  *visitmetrics.Metrics
	tracer   trace.Tracer
}

type engineConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *visitmetrics.Metrics
	tx             StoreTx
	locks          TransitionLock
}

type Option func(*engineConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *engineConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *visitmetrics.Metrics) Option {
	return func(c *engineConfig) {
		c.metrics = m
	}
}

// WithStoreTx sets the transactional boundary for the deceased exception
// path. Defaults to the in-memory coarse lock.
func WithStoreTx(tx StoreTx) Option {
	return func(c *engineConfig) {
		c.tx = tx
	}
}

// WithTransitionLock enables a distributed per-visit lock around
// transitions.
func WithTransitionLock(locks TransitionLock) Option {
	return func(c *engineConfig) {
		c.locks = locks
	}
}

func NewEngine(visits VisitStore, citizens CitizenStore, opts ...Option) *Engine {
	cfg := &engineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	return &Engine{
		visits:   visits,
		citizens: citizens,
		tx:       tx,
		locks:    cfg.locks,
		emitter:  newAuditEmitter(cfg.logger, cfg.auditPublisher),
		metrics:  cfg.metrics,
		tracer:   otel.Tracer("vigil/visit"),
	}
}

func requireVisitID(visitID id.VisitID) error {
	if visitID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "visit id is required")
	}
	return nil
}

// wrapVisitErr translates store sentinels into the domain taxonomy.
// Infrastructure failures become CodePersistence, the only retryable
// category.
func wrapVisitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "visit not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "visit was modified concurrently")
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "visit store write failed")
}

func wrapCitizenErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "citizen not found")
	}
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "citizen store write failed")
}

// auditEmitter pairs structured audit logging with the publisher so every
// transition leaves both a log line and a durable event.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (a *auditEmitter) emit(ctx context.Context, action audit.AuditEvent, visit *models.Visit, reason string) error {
	if a.logger != nil {
		a.logger.InfoContext(ctx, string(action),
			"visit_id", visit.ID.String(),
			"citizen_id", visit.CitizenID.String(),
			"officer_id", visit.OfficerID.String(),
			"status", string(visit.Status),
			"reason", reason,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if a.publisher == nil {
		return nil
	}
	return a.publisher.Emit(ctx, audit.Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		VisitID:   visit.ID,
		CitizenID: visit.CitizenID,
		OfficerID: visit.OfficerID,
		Action:    string(action),
		Reason:    reason,
		Device:    requestcontext.Device(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
}

// emitBestEffort is emit for paths where a failed audit write must not
// mask the error already being reported.
func (a *auditEmitter) emitBestEffort(ctx context.Context, action audit.AuditEvent, visit *models.Visit, reason string) {
	if err := a.emit(ctx, action, visit, reason); err != nil && a.logger != nil {
		a.logger.ErrorContext(ctx, "audit emit failed",
			"action", string(action),
			"visit_id", visit.ID.String(),
			"error", err,
		)
	}
}
