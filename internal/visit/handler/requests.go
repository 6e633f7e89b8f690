package handler

import (
	"strings"
	"time"

	"vigil/internal/geofence"
	"vigil/internal/risk"
	"vigil/internal/visit/models"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

const maxNotesLength = 2000

// LocationPayload is an officer-reported coordinate pair. It is carried as
// a pointer in request bodies: absence means "no location fix", which is
// distinct from any coordinate value, including (0,0).
type LocationPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CreateRequest is the HTTP request body for POST /visits.
type CreateRequest struct {
	CitizenID   string    `json:"citizen_id"`
	VisitType   string    `json:"visit_type"`
	ScheduledAt time.Time `json:"scheduled_at"`

	// Parsed values (populated by Validate)
	parsedCitizenID id.CitizenID
	parsedVisitType models.VisitType
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	citizenID, err := id.ParseCitizenID(strings.TrimSpace(r.CitizenID))
	if err != nil {
		return err
	}
	r.parsedCitizenID = citizenID

	visitType, err := models.ParseVisitType(strings.TrimSpace(r.VisitType))
	if err != nil {
		return err
	}
	r.parsedVisitType = visitType

	if r.ScheduledAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "scheduled_at is required")
	}
	return nil
}

// ParsedCitizenID returns the validated citizen ID.
func (r *CreateRequest) ParsedCitizenID() id.CitizenID { return r.parsedCitizenID }

// ParsedVisitType returns the validated visit type.
func (r *CreateRequest) ParsedVisitType() models.VisitType { return r.parsedVisitType }

// StartRequest is the HTTP request body for POST /visits/{visitID}/start.
type StartRequest struct {
	Location *LocationPayload `json:"location"`
}

func (r *StartRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// Coordinates returns the reported location, or nil when no fix was sent.
func (r *StartRequest) Coordinates() *geofence.Coordinates {
	return coordinatesOf(r.Location)
}

// ForceStartRequest is the HTTP request body for POST /visits/{visitID}/force-start.
type ForceStartRequest struct {
	Location *LocationPayload `json:"location"`
	Reason   string           `json:"reason"`
}

func (r *ForceStartRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

func (r *ForceStartRequest) Coordinates() *geofence.Coordinates {
	return coordinatesOf(r.Location)
}

// CompleteRequest is the HTTP request body for POST /visits/{visitID}/complete.
// The assessment enum values are validated by the engine against their
// closed sets; the handler only checks structural constraints.
type CompleteRequest struct {
	Assessment      risk.Assessment  `json:"assessment"`
	Location        *LocationPayload `json:"location"`
	Notes           string           `json:"notes"`
	DurationMinutes int              `json:"duration_minutes"`
}

func (r *CompleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes is too long")
	}
	return nil
}

func (r *CompleteRequest) Coordinates() *geofence.Coordinates {
	return coordinatesOf(r.Location)
}

// CancelRequest is the HTTP request body for POST /visits/{visitID}/cancel.
type CancelRequest struct {
	Category string `json:"category"`
	Notes    string `json:"notes"`

	parsedCategory models.CancellationCategory
}

func (r *CancelRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	category, err := models.ParseCancellationCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return err
	}
	r.parsedCategory = category

	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes is too long")
	}
	return nil
}

// ParsedCategory returns the validated cancellation category.
func (r *CancelRequest) ParsedCategory() models.CancellationCategory { return r.parsedCategory }

// RescheduleRequest is the HTTP request body for POST /visits/{visitID}/reschedule.
type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes"`
}

func (r *RescheduleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ScheduledAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "scheduled_at is required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes is too long")
	}
	return nil
}

// ExceptionRequest is the HTTP request body for POST /visits/{visitID}/exception.
type ExceptionRequest struct {
	Kind  string `json:"kind"`
	Notes string `json:"notes"`

	parsedKind models.ExceptionKind
}

func (r *ExceptionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	kind, err := models.ParseExceptionKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return err
	}
	r.parsedKind = kind

	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes is too long")
	}
	return nil
}

// ParsedKind returns the validated exception kind.
func (r *ExceptionRequest) ParsedKind() models.ExceptionKind { return r.parsedKind }

func coordinatesOf(p *LocationPayload) *geofence.Coordinates {
	if p == nil {
		return nil
	}
	return &geofence.Coordinates{Lat: p.Lat, Lng: p.Lng}
}
