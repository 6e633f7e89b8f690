package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	citizenmodels "vigil/internal/citizen/models"
	"vigil/internal/geofence"
	"vigil/internal/risk"
	"vigil/internal/visit/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/audit"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

// errAlreadyCancelled short-circuits Execute so Cancel can return the
// existing record instead of erroring. Never escapes the engine.
var errAlreadyCancelled = errors.New("visit already cancelled")

// CreateVisitParams carries the fields needed to schedule a visit.
type CreateVisitParams struct {
	CitizenID   id.CitizenID
	OfficerID   id.OfficerID
	VisitType   models.VisitType
	ScheduledAt time.Time
}

// CompleteParams carries the officer's on-site observations for a normal
// completion.
type CompleteParams struct {
	Assessment      risk.Assessment
	Location        *geofence.Coordinates
	Notes           string
	DurationMinutes int
}

// Create schedules a visit for an active citizen.
func (e *Engine) Create(ctx context.Context, params CreateVisitParams) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.create")
	defer span.End()
	start := time.Now()

	citizen, err := e.citizens.FindByID(ctx, params.CitizenID)
	if err != nil {
		return nil, wrapCitizenErr(err)
	}
	if !citizen.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "cannot schedule a visit for an inactive citizen")
	}
	if params.OfficerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "officer id is required")
	}

	visit, err := models.NewVisit(
		id.VisitID(uuid.New()),
		params.CitizenID,
		params.OfficerID,
		params.VisitType,
		params.ScheduledAt,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := e.visits.Create(txCtx, visit); err != nil {
			return wrapVisitErr(err)
		}
		return e.emitter.emit(txCtx, audit.EventVisitScheduled, visit, "")
	})
	if err != nil {
		return nil, err
	}

	e.incrementScheduled()
	e.observeTransition("create", start)
	return visit, nil
}

// Get returns a visit by id.
func (e *Engine) Get(ctx context.Context, visitID id.VisitID) (*models.Visit, error) {
	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}
	visit, err := e.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, wrapVisitErr(err)
	}
	return visit, nil
}

// ListByOfficer returns the visits assigned to an officer.
func (e *Engine) ListByOfficer(ctx context.Context, officerID id.OfficerID) ([]*models.Visit, error) {
	if officerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "officer id is required")
	}
	visits, err := e.visits.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, wrapVisitErr(err)
	}
	return visits, nil
}

// RescheduleHistory returns a visit's append-only reschedule log.
func (e *Engine) RescheduleHistory(ctx context.Context, visitID id.VisitID) ([]models.RescheduleEntry, error) {
	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}
	if _, err := e.visits.FindByID(ctx, visitID); err != nil {
		return nil, wrapVisitErr(err)
	}
	entries, err := e.visits.ListRescheduleHistory(ctx, visitID)
	if err != nil {
		return nil, wrapVisitErr(err)
	}
	return entries, nil
}

// RequestStart runs the geofence gate and, on acceptance, transitions the
// visit to in_progress. A rejection makes no state change; the caller may
// retry with a fresh location or invoke ForceStart with a recorded reason.
//
// candidate is the officer's acquired fix. A nil candidate means location
// acquisition failed upstream; the gate rejects it as unavailable rather
// than treating any sentinel coordinate as a real position.
func (e *Engine) RequestStart(ctx context.Context, visitID id.VisitID, candidate *geofence.Coordinates, toleranceMeters float64) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.request_start")
	defer span.End()
	start := time.Now()

	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, dErrors.New(dErrors.CodeLocationUnavailable, "no verified location fix to run the start gate against")
	}

	release, err := e.acquireLock(ctx, visitID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := e.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, wrapVisitErr(err)
	}
	citizen, err := e.citizens.FindByID(ctx, current.CitizenID)
	if err != nil {
		return nil, wrapCitizenErr(err)
	}
	if !citizen.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "citizen record is no longer active")
	}

	decision, err := geofence.Validate(*candidate, citizen.HomeCoordinates, toleranceMeters)
	if err != nil {
		return nil, err
	}
	if !decision.Accepted {
		e.incrementGeofenceRejected()
		return nil, dErrors.New(dErrors.CodeGeofenceRejected, "officer location is outside the allowed radius").
			WithDetail("distance_meters", decision.DistanceMeters).
			WithDetail("tolerance_meters", decision.ToleranceMeters)
	}

	now := requestcontext.Now(ctx)
	var visit *models.Visit
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := e.visits.Execute(txCtx, visitID,
			func(v *models.Visit) error {
				return v.CanStart()
			},
			func(v *models.Visit) {
				v.ApplyStart(now, candidate)
			},
		)
		if err != nil {
			return wrapVisitErr(err)
		}
		if err := e.emitter.emit(txCtx, audit.EventVisitStarted, v, ""); err != nil {
			return err
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.incrementStarted()
	e.observeTransition("request_start", start)
	return visit, nil
}

// ForceStart bypasses the geofence gate. The override reason is mandatory
// and lands in the compliance audit trail; this is a distinct, audited
// path, never a silent fallback. candidate may be nil when the bypass
// exists precisely because no fix could be acquired.
func (e *Engine) ForceStart(ctx context.Context, visitID id.VisitID, candidate *geofence.Coordinates, overrideReason string) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.force_start")
	defer span.End()
	start := time.Now()

	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}
	if overrideReason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "override reason is required to bypass the geofence gate")
	}
	if candidate != nil && !candidate.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidCoordinates, "candidate location is malformed")
	}

	release, err := e.acquireLock(ctx, visitID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	var visit *models.Visit
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := e.visits.Execute(txCtx, visitID,
			func(v *models.Visit) error {
				return v.CanStart()
			},
			func(v *models.Visit) {
				v.ApplyForceStart(now, candidate, overrideReason)
			},
		)
		if err != nil {
			return wrapVisitErr(err)
		}
		if err := e.emitter.emit(txCtx, audit.EventGeofenceOverridden, v, overrideReason); err != nil {
			return err
		}
		if err := e.emitter.emit(txCtx, audit.EventVisitStarted, v, ""); err != nil {
			return err
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.incrementOverride()
	e.incrementStarted()
	e.observeTransition("force_start", start)
	return visit, nil
}

// Complete transitions an in-progress visit to completed, scoring the
// assessment exactly once and storing the score beside the answers it was
// derived from.
func (e *Engine) Complete(ctx context.Context, visitID id.VisitID, params CompleteParams) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.complete")
	defer span.End()
	start := time.Now()

	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}
	if err := params.Assessment.Validate(); err != nil {
		return nil, err
	}
	if params.Location != nil && !params.Location.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidCoordinates, "completion location is malformed")
	}
	if params.DurationMinutes < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration cannot be negative")
	}

	release, err := e.acquireLock(ctx, visitID)
	if err != nil {
		return nil, err
	}
	defer release()

	assessment := params.Assessment
	result := risk.Score(assessment)
	now := requestcontext.Now(ctx)

	var visit *models.Visit
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := e.visits.Execute(txCtx, visitID,
			func(v *models.Visit) error {
				return v.CanComplete()
			},
			func(v *models.Visit) {
				v.ApplyComplete(now, &assessment, result, params.Location, params.Notes, params.DurationMinutes)
			},
		)
		if err != nil {
			return wrapVisitErr(err)
		}
		if err := e.emitter.emit(txCtx, audit.EventVisitCompleted, v, string(result.Band)); err != nil {
			return err
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.incrementCompleted()
	e.observeRiskScore(result.Score)
	e.observeTransition("complete", start)
	return visit, nil
}

// Cancel transitions a scheduled or in-progress visit to cancelled.
// Idempotent: cancelling an already-cancelled visit returns the existing
// record unchanged, tolerating client retries.
func (e *Engine) Cancel(ctx context.Context, visitID id.VisitID, category models.CancellationCategory, notes string) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.cancel")
	defer span.End()
	start := time.Now()

	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}

	release, err := e.acquireLock(ctx, visitID)
	if err != nil {
		return nil, err
	}
	defer release()

	var visit *models.Visit
	var alreadyCancelled bool
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, already, err := e.cancelOnce(txCtx, visitID, category, notes)
		if err != nil {
			return err
		}
		visit, alreadyCancelled = v, already
		if already {
			return nil
		}
		return e.emitter.emit(txCtx, audit.EventVisitCancelled, v, string(category))
	})
	if err != nil {
		return nil, err
	}
	if alreadyCancelled {
		return visit, nil
	}

	e.incrementCancelled()
	e.observeTransition("cancel", start)
	return visit, nil
}

// cancelOnce performs the cancel transition under the store lock. The
// second return reports that the visit was already cancelled and the
// returned record is the existing one, untouched.
func (e *Engine) cancelOnce(ctx context.Context, visitID id.VisitID, category models.CancellationCategory, notes string) (*models.Visit, bool, error) {
	now := requestcontext.Now(ctx)

	var existing *models.Visit
	visit, err := e.visits.Execute(ctx, visitID,
		func(v *models.Visit) error {
			if v.IsCancelled() {
				snapshot := *v
				existing = &snapshot
				return errAlreadyCancelled
			}
			return v.CanCancel()
		},
		func(v *models.Visit) {
			v.ApplyCancel(now, models.CancellationReason{Category: category, Notes: notes})
		},
	)
	if errors.Is(err, errAlreadyCancelled) {
		return existing, true, nil
	}
	if err != nil {
		return nil, false, wrapVisitErr(err)
	}
	return visit, false, nil
}

// Reschedule moves a scheduled visit's time in place and appends to the
// append-only history log in the same unit of work. A visit in progress
// cannot be rescheduled, only cancelled.
func (e *Engine) Reschedule(ctx context.Context, visitID id.VisitID, newScheduledAt time.Time, notes string) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.reschedule")
	defer span.End()
	start := time.Now()

	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}
	if newScheduledAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "new scheduled time is required")
	}

	release, err := e.acquireLock(ctx, visitID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	var visit *models.Visit
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var previousScheduledAt time.Time
		v, err := e.visits.Execute(txCtx, visitID,
			func(v *models.Visit) error {
				previousScheduledAt = v.ScheduledAt
				return v.CanReschedule()
			},
			func(v *models.Visit) {
				v.ApplyReschedule(now, newScheduledAt)
			},
		)
		if err != nil {
			return wrapVisitErr(err)
		}

		entry := models.RescheduleEntry{
			VisitID:    visitID,
			From:       previousScheduledAt,
			To:         newScheduledAt,
			Notes:      notes,
			RecordedAt: now,
		}
		if err := e.visits.AppendRescheduleHistory(txCtx, entry); err != nil {
			return wrapVisitErr(err)
		}
		if err := e.emitter.emit(txCtx, audit.EventVisitRescheduled, v, notes); err != nil {
			return err
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.observeTransition("reschedule", start)
	return visit, nil
}

// ReportException closes a visit for an abnormal field condition.
//
// NotAvailable cancels the visit with the matching reason category.
// Deceased additionally flips the citizen's lifecycle status; the two
// writes run inside the StoreTx boundary, and if the citizen write fails
// after the visit cancel succeeded the engine reverses the cancel. A
// failed reversal is recorded as a reconciliation event, never silently
// ignored.
func (e *Engine) ReportException(ctx context.Context, visitID id.VisitID, kind models.ExceptionKind, notes string) (*models.Visit, error) {
	ctx, span := e.tracer.Start(ctx, "visit.report_exception")
	defer span.End()
	start := time.Now()

	if err := requireVisitID(visitID); err != nil {
		return nil, err
	}

	switch kind {
	case models.ExceptionNotAvailable:
		visit, err := e.Cancel(ctx, visitID, models.CancelCategoryNotAvailable, notes)
		if err != nil {
			return nil, err
		}
		e.observeTransition("report_exception", start)
		return visit, nil
	case models.ExceptionDeceased:
		visit, err := e.reportDeceased(ctx, visitID, notes)
		if err != nil {
			return nil, err
		}
		e.observeTransition("report_exception", start)
		return visit, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown exception kind %q", kind)
	}
}

// reportDeceased is the one path spanning two resources: the visit cancel
// and the citizen status flip must both apply or neither.
func (e *Engine) reportDeceased(ctx context.Context, visitID id.VisitID, notes string) (*models.Visit, error) {
	release, err := e.acquireLock(ctx, visitID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	var visit *models.Visit
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var prior models.Visit
		v, err := e.visits.Execute(txCtx, visitID,
			func(v *models.Visit) error {
				prior = *v
				return v.CanCancel()
			},
			func(v *models.Visit) {
				v.ApplyCancel(now, models.CancellationReason{
					Category: models.CancelCategoryDeceased,
					Notes:    notes,
				})
			},
		)
		if err != nil {
			return wrapVisitErr(err)
		}

		if _, err := e.citizens.Execute(txCtx, v.CitizenID,
			func(c *citizenmodels.Citizen) error {
				return c.CanMarkDeceased()
			},
			func(c *citizenmodels.Citizen) {
				c.ApplyDeceased(now)
			},
		); err != nil {
			e.compensateCancel(txCtx, visitID, prior)
			return wrapCitizenErr(err)
		}

		if err := e.emitter.emit(txCtx, audit.EventCitizenDeceasedReported, v, notes); err != nil {
			return err
		}
		if err := e.emitter.emit(txCtx, audit.EventVisitCancelled, v, string(models.CancelCategoryDeceased)); err != nil {
			return err
		}
		visit = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.incrementCancelled()
	return visit, nil
}

// compensateCancel reverses a visit cancellation whose companion citizen
// write failed. Under a real database transaction the enclosing rollback
// restores consistency anyway; with the in-memory stores this reversal is
// the only mechanism. If even the reversal fails the inconsistency is
// flagged for reconciliation rather than left silent.
func (e *Engine) compensateCancel(ctx context.Context, visitID id.VisitID, prior models.Visit) {
	_, err := e.visits.Execute(ctx, visitID,
		func(v *models.Visit) error {
			return nil
		},
		func(v *models.Visit) {
			v.Status = prior.Status
			v.CancellationReason = prior.CancellationReason
			v.UpdatedAt = prior.UpdatedAt
		},
	)
	if err == nil {
		return
	}
	e.incrementReconciliationFailure()
	e.emitter.emitBestEffort(ctx, audit.EventReconciliationFailed, &prior, "visit cancel reversal failed after citizen write failure")
}

func (e *Engine) acquireLock(ctx context.Context, visitID id.VisitID) (func(), error) {
	if e.locks == nil {
		return func() {}, nil
	}
	release, err := e.locks.Acquire(ctx, visitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrLockHeld) {
			return nil, dErrors.New(dErrors.CodeConflict, "another transition is in flight for this visit")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "transition lock unavailable")
	}
	return release, nil
}

func (e *Engine) incrementScheduled() {
	if e.metrics != nil {
		e.metrics.VisitsScheduled.Inc()
	}
}

func (e *Engine) incrementStarted() {
	if e.metrics != nil {
		e.metrics.VisitsStarted.Inc()
	}
}

func (e *Engine) incrementCompleted() {
	if e.metrics != nil {
		e.metrics.VisitsCompleted.Inc()
	}
}

func (e *Engine) incrementCancelled() {
	if e.metrics != nil {
		e.metrics.VisitsCancelled.Inc()
	}
}

func (e *Engine) incrementGeofenceRejected() {
	if e.metrics != nil {
		e.metrics.GeofenceRejections.Inc()
	}
}

func (e *Engine) incrementOverride() {
	if e.metrics != nil {
		e.metrics.GeofenceOverrides.Inc()
	}
}

func (e *Engine) incrementReconciliationFailure() {
	if e.metrics != nil {
		e.metrics.ReconciliationFailures.Inc()
	}
}

func (e *Engine) observeTransition(operation string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveTransition(operation, start)
	}
}

func (e *Engine) observeRiskScore(score int) {
	if e.metrics != nil {
		e.metrics.ObserveRiskScore(score)
	}
}
