package audit

import (
	"time"

	id "vigil/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: geofence overrides, deceased reports, citizen status changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: rejected tokens, repeated geofence rejections from one officer.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	// Examples: routine starts, completions, reschedules.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	VisitID   id.VisitID
	CitizenID id.CitizenID
	OfficerID id.OfficerID
	Action    string
	// Reason carries the override reason, cancellation category, or
	// reconciliation detail depending on the action.
	Reason string
	// Device and ClientIP describe the officer app instance that issued
	// the request, taken from request context middleware.
	Device    string
	ClientIP  string
	RequestID string
}

type AuditEvent string

const (
	// Visit lifecycle events
	EventVisitScheduled   AuditEvent = "visit_scheduled"
	EventVisitStarted     AuditEvent = "visit_started"
	EventVisitCompleted   AuditEvent = "visit_completed"
	EventVisitCancelled   AuditEvent = "visit_cancelled"
	EventVisitRescheduled AuditEvent = "visit_rescheduled"

	// Exception and override events
	EventGeofenceOverridden      AuditEvent = "geofence_overridden"
	EventCitizenDeceasedReported AuditEvent = "citizen_deceased_reported"
	EventReconciliationFailed    AuditEvent = "visit_reconciliation_failed"
)

// eventCategories is the source of truth for routing events to categories.
var eventCategories = map[AuditEvent]EventCategory{
	EventVisitScheduled:   CategoryOperations,
	EventVisitStarted:     CategoryOperations,
	EventVisitCompleted:   CategoryOperations,
	EventVisitCancelled:   CategoryOperations,
	EventVisitRescheduled: CategoryOperations,

	EventGeofenceOverridden:      CategoryCompliance,
	EventCitizenDeceasedReported: CategoryCompliance,
	EventReconciliationFailed:    CategorySecurity,
}

// Category returns the routing category for an audit event type.
// Unknown actions route to operations so nothing is dropped.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
