package handler

import (
	"time"

	"vigil/internal/risk"
	"vigil/internal/visit/models"
)

// VisitResponse is the HTTP representation of a visit.
type VisitResponse struct {
	ID              string              `json:"id"`
	CitizenID       string              `json:"citizen_id"`
	OfficerID       string              `json:"officer_id"`
	Status          string              `json:"status"`
	VisitType       string              `json:"visit_type"`
	ScheduledAt     time.Time           `json:"scheduled_at"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	Location        *LocationPayload    `json:"location,omitempty"`
	RiskScore       *int                `json:"risk_score,omitempty"`
	RiskBand        string              `json:"risk_band,omitempty"`
	Assessment      *risk.Assessment    `json:"assessment,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	DurationMinutes int                 `json:"duration_minutes,omitempty"`
	Cancellation    *CancellationDetail `json:"cancellation,omitempty"`
	OverrideReason  string              `json:"override_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CancellationDetail is the cancellation portion of a visit response.
type CancellationDetail struct {
	Category string `json:"category"`
	Notes    string `json:"notes,omitempty"`
}

// RescheduleEntryResponse is one row of a visit's reschedule history.
type RescheduleEntryResponse struct {
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FromVisit converts a domain visit to its HTTP representation.
func FromVisit(v *models.Visit) *VisitResponse {
	resp := &VisitResponse{
		ID:              v.ID.String(),
		CitizenID:       v.CitizenID.String(),
		OfficerID:       v.OfficerID.String(),
		Status:          string(v.Status),
		VisitType:       string(v.VisitType),
		ScheduledAt:     v.ScheduledAt,
		StartedAt:       v.StartedAt,
		CompletedAt:     v.CompletedAt,
		RiskScore:       v.RiskScore,
		RiskBand:        string(v.RiskBand),
		Assessment:      v.Assessment,
		Notes:           v.Notes,
		DurationMinutes: v.DurationMinutes,
		OverrideReason:  v.OverrideReason,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	if v.Location != nil {
		resp.Location = &LocationPayload{Lat: v.Location.Lat, Lng: v.Location.Lng}
	}
	if v.CancellationReason != nil {
		resp.Cancellation = &CancellationDetail{
			Category: string(v.CancellationReason.Category),
			Notes:    v.CancellationReason.Notes,
		}
	}
	return resp
}

// FromVisits converts a list of visits. An empty list renders as [] so
// clients never see null.
func FromVisits(visits []*models.Visit) []*VisitResponse {
	out := make([]*VisitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, FromVisit(v))
	}
	return out
}

// FromRescheduleEntries converts a reschedule history log.
func FromRescheduleEntries(entries []models.RescheduleEntry) []RescheduleEntryResponse {
	out := make([]RescheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RescheduleEntryResponse{
			From:       e.From,
			To:         e.To,
			Notes:      e.Notes,
			RecordedAt: e.RecordedAt,
		})
	}
	return out
}
