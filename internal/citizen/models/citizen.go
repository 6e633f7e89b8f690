package models

import (
	"time"

	"vigil/internal/geofence"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// LifecycleStatus tracks whether the citizen record is active.
type LifecycleStatus string

const (
	StatusActive   LifecycleStatus = "active"
	StatusDeceased LifecycleStatus = "deceased"
)

// Citizen is the registered senior citizen a visit is scheduled for.
//
// The portal backend owns citizen records; this service reads them for the
// geofence target and mutates exactly one field, LifecycleStatus, as the
// side effect of a Deceased exception report. Deceased is terminal.
type Citizen struct {
	ID              id.CitizenID         `json:"id"`
	FullName        string               `json:"full_name"`
	HomeCoordinates geofence.Coordinates `json:"home_coordinates"`
	LifecycleStatus LifecycleStatus      `json:"lifecycle_status"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// IsActive reports whether the citizen can still receive visits.
func (c *Citizen) IsActive() bool {
	return c.LifecycleStatus == StatusActive
}

// CanMarkDeceased checks the status transition is allowed.
// Use with ApplyDeceased in Execute callbacks.
func (c *Citizen) CanMarkDeceased() error {
	if c.LifecycleStatus == StatusDeceased {
		return dErrors.New(dErrors.CodeInvariantViolation, "citizen is already recorded as deceased")
	}
	return nil
}

// ApplyDeceased transitions the citizen to deceased status.
// Call CanMarkDeceased first to validate the transition.
func (c *Citizen) ApplyDeceased(now time.Time) {
	c.LifecycleStatus = StatusDeceased
	c.UpdatedAt = now
}
