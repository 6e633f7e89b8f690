package models

import (
	"time"

	"vigil/internal/geofence"
	"vigil/internal/risk"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// Visit is the aggregate root for a scheduled field visit.
//
// Invariants:
//   - Status only advances forward through the transition graph in VisitStatus
//   - StartedAt and CompletedAt are set exactly once, on the corresponding
//     transition, and StartedAt <= CompletedAt whenever both are present
//   - RiskScore, when present, is in [0, 100] and was computed from the
//     Assessment stored alongside it, exactly once, at completion
//   - CancellationReason is present only when Status is cancelled
//   - OverrideReason is present only when the start gate was bypassed
//   - ScheduledAt is mutable only via ApplyReschedule, which callers pair
//     with an append-only history entry
//
// Version is the optimistic-concurrency column; stores bump it on every
// successful write, the aggregate never touches it.
type Visit struct {
	ID                 id.VisitID            `json:"id"`
	CitizenID          id.CitizenID          `json:"citizen_id"`
	OfficerID          id.OfficerID          `json:"officer_id"`
	Status             VisitStatus           `json:"status"`
	VisitType          VisitType             `json:"visit_type"`
	ScheduledAt        time.Time             `json:"scheduled_at"`
	StartedAt          *time.Time            `json:"started_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	Location           *geofence.Coordinates `json:"location,omitempty"`
	RiskScore          *int                  `json:"risk_score,omitempty"`
	RiskBand           risk.Band             `json:"risk_band,omitempty"`
	Assessment         *risk.Assessment      `json:"assessment,omitempty"`
	Notes              string                `json:"notes,omitempty"`
	DurationMinutes    int                   `json:"duration_minutes,omitempty"`
	CancellationReason *CancellationReason   `json:"cancellation_reason,omitempty"`
	OverrideReason     string                `json:"override_reason,omitempty"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// CancellationReason pairs the enumerated category with the officer's
// free-text notes.
type CancellationReason struct {
	Category CancellationCategory `json:"category"`
	Notes    string               `json:"notes,omitempty"`
}

// RescheduleEntry is one row of a visit's append-only reschedule history.
type RescheduleEntry struct {
	VisitID    id.VisitID `json:"visit_id"`
	From       time.Time  `json:"from"`
	To         time.Time  `json:"to"`
	Notes      string     `json:"notes,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

func (v *Visit) IsCancelled() bool {
	return v.Status == VisitStatusCancelled
}

// CanStart checks if the visit can transition to in_progress.
// Returns an error if the transition is not allowed.
// Use with ApplyStart in Execute callbacks.
func (v *Visit) CanStart() error {
	if !v.Status.CanTransitionTo(VisitStatusInProgress) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot start a visit that is %s", v.Status)
	}
	return nil
}

// ApplyStart transitions the visit to in_progress, recording the verified
// start location. Call CanStart first to validate the transition.
func (v *Visit) ApplyStart(now time.Time, location *geofence.Coordinates) {
	v.Status = VisitStatusInProgress
	v.StartedAt = &now
	v.Location = location
	v.UpdatedAt = now
}

// ApplyForceStart is ApplyStart with the geofence gate bypassed. The
// override reason is mandatory audit state; location may be absent when
// the bypass exists precisely because no fix could be acquired.
func (v *Visit) ApplyForceStart(now time.Time, location *geofence.Coordinates, overrideReason string) {
	v.ApplyStart(now, location)
	v.OverrideReason = overrideReason
}

// CanComplete checks if the visit can transition to completed.
// Only an in-progress visit can complete.
func (v *Visit) CanComplete() error {
	if !v.Status.CanTransitionTo(VisitStatusCompleted) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot complete a visit that is %s", v.Status)
	}
	return nil
}

// ApplyComplete transitions the visit to completed, attaching the scored
// assessment. The score must come from the exact assessment stored here.
// Call CanComplete first to validate the transition.
func (v *Visit) ApplyComplete(
	now time.Time,
	assessment *risk.Assessment,
	result risk.Result,
	location *geofence.Coordinates,
	notes string,
	durationMinutes int,
) {
	v.Status = VisitStatusCompleted
	v.CompletedAt = &now
	v.Assessment = assessment
	v.RiskScore = &result.Score
	v.RiskBand = result.Band
	if location != nil {
		v.Location = location
	}
	v.Notes = notes
	v.DurationMinutes = durationMinutes
	v.UpdatedAt = now
}

// CanCancel checks if the visit can transition to cancelled. Callers
// wanting idempotent behavior check IsCancelled before this; CanCancel
// itself rejects any terminal state.
func (v *Visit) CanCancel() error {
	if !v.Status.CanTransitionTo(VisitStatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot cancel a visit that is %s", v.Status)
	}
	return nil
}

// ApplyCancel transitions the visit to cancelled with the given reason.
// Call CanCancel first to validate the transition.
func (v *Visit) ApplyCancel(now time.Time, reason CancellationReason) {
	v.Status = VisitStatusCancelled
	v.CancellationReason = &reason
	v.UpdatedAt = now
}

// CanReschedule checks that scheduled_at may be edited in place. Only a
// scheduled visit can move; one in progress can only be cancelled.
func (v *Visit) CanReschedule() error {
	if v.Status == VisitStatusInProgress {
		return dErrors.New(dErrors.CodeInvalidState, "a visit in progress cannot be rescheduled, only cancelled")
	}
	if v.Status != VisitStatusScheduled {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot reschedule a visit that is %s", v.Status)
	}
	return nil
}

// ApplyReschedule moves scheduled_at. This is the only in-place mutation
// the aggregate permits without a status change; callers append a
// RescheduleEntry in the same write.
func (v *Visit) ApplyReschedule(now time.Time, newScheduledAt time.Time) {
	v.ScheduledAt = newScheduledAt
	v.UpdatedAt = now
}

func NewVisit(
	visitID id.VisitID,
	citizenID id.CitizenID,
	officerID id.OfficerID,
	visitType VisitType,
	scheduledAt time.Time,
	now time.Time,
) (*Visit, error) {
	if scheduledAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "visit must carry a scheduled time")
	}
	return &Visit{
		ID:          visitID,
		CitizenID:   citizenID,
		OfficerID:   officerID,
		Status:      VisitStatusScheduled,
		VisitType:   visitType,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
