package models

import (
	dErrors "vigil/pkg/domain-errors"
)

// VisitStatus is the lifecycle state of a visit.
//
// Transition graph:
//
//	scheduled → in_progress → completed
//	scheduled → cancelled
//	in_progress → cancelled
//
// completed and cancelled are terminal. Status never re-enters a state it
// has left; a reschedule edits scheduled_at in place and appends history,
// it does not loop the status.
type VisitStatus string

const (
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInProgress VisitStatus = "in_progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
)

func (s VisitStatus) IsTerminal() bool {
	return s == VisitStatusCompleted || s == VisitStatusCancelled
}

// CanTransitionTo reports whether the transition graph permits moving
// from s to target.
func (s VisitStatus) CanTransitionTo(target VisitStatus) bool {
	switch s {
	case VisitStatusScheduled:
		return target == VisitStatusInProgress || target == VisitStatusCancelled
	case VisitStatusInProgress:
		return target == VisitStatusCompleted || target == VisitStatusCancelled
	default:
		return false
	}
}

// VisitType categorizes the visit. Informational only; it never affects
// the transition graph, though callers may vary the geofence tolerance
// by type.
type VisitType string

const (
	VisitTypeRoutine      VisitType = "routine"
	VisitTypeEmergency    VisitType = "emergency"
	VisitTypeFollowUp     VisitType = "follow_up"
	VisitTypeVerification VisitType = "verification"
)

func ParseVisitType(s string) (VisitType, error) {
	switch VisitType(s) {
	case VisitTypeRoutine, VisitTypeEmergency, VisitTypeFollowUp, VisitTypeVerification:
		return VisitType(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown visit type %q", s)
}

// CancellationCategory is the enumerated reason class a cancelled visit
// carries alongside free-text notes.
type CancellationCategory string

const (
	CancelCategoryNotAvailable    CancellationCategory = "not_available"
	CancelCategoryDeceased        CancellationCategory = "deceased"
	CancelCategoryCitizenRequest  CancellationCategory = "citizen_request"
	CancelCategoryOfficerRecalled CancellationCategory = "officer_recalled"
	CancelCategoryOther           CancellationCategory = "other"
)

func ParseCancellationCategory(s string) (CancellationCategory, error) {
	switch CancellationCategory(s) {
	case CancelCategoryNotAvailable, CancelCategoryDeceased, CancelCategoryCitizenRequest,
		CancelCategoryOfficerRecalled, CancelCategoryOther:
		return CancellationCategory(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown cancellation category %q", s)
}

// ExceptionKind is the abnormal field condition an officer can report
// instead of completing a visit.
type ExceptionKind string

const (
	ExceptionNotAvailable ExceptionKind = "not_available"
	ExceptionDeceased     ExceptionKind = "deceased"
)

func ParseExceptionKind(s string) (ExceptionKind, error) {
	switch ExceptionKind(s) {
	case ExceptionNotAvailable, ExceptionDeceased:
		return ExceptionKind(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown exception kind %q", s)
}
