package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "vigil/pkg/domain"
	audit "vigil/pkg/platform/audit"
	txcontext "vigil/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// visit mutation they describe, and published to Kafka by the outbox worker.
// This is what makes the Deceased path's "both writes or neither" guarantee
// extend to its audit trail.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	VisitID   string `json:"VisitID,omitempty"`
	CitizenID string `json:"CitizenID,omitempty"`
	OfficerID string `json:"OfficerID,omitempty"`
	Action    string `json:"Action"`
	Reason    string `json:"Reason,omitempty"`
	Device    string `json:"Device,omitempty"`
	ClientIP  string `json:"ClientIP,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
}

// Append writes an audit event twice within one executor: an outbox row for
// Kafka publishing and an audit_events row that backs ListByVisit. When the
// context carries a transaction both inserts join it, so the trail commits
// or rolls back with the visit mutation.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Reason:    event.Reason,
		Device:    event.Device,
		ClientIP:  event.ClientIP,
		RequestID: event.RequestID,
	}

	var visitID, citizenID, officerID any
	if !event.VisitID.IsNil() {
		payload.VisitID = event.VisitID.String()
		visitID = uuid.UUID(event.VisitID)
	}
	if !event.CitizenID.IsNil() {
		payload.CitizenID = event.CitizenID.String()
		citizenID = uuid.UUID(event.CitizenID)
	}
	if !event.OfficerID.IsNil() {
		payload.OfficerID = event.OfficerID.String()
		officerID = uuid.UUID(event.OfficerID)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.VisitID.IsNil() {
		aggregateType = "visit"
		aggregateID = event.VisitID.String()
	}

	exec := s.execer(ctx)

	outboxQuery := `
		INSERT INTO outbox (aggregate_type, aggregate_id, category, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := exec.ExecContext(ctx, outboxQuery,
		aggregateType,
		aggregateID,
		string(category),
		payloadBytes,
		time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	eventsQuery := `
		INSERT INTO audit_events (category, occurred_at, visit_id, citizen_id, officer_id,
		                          action, reason, device, client_ip, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := exec.ExecContext(ctx, eventsQuery,
		string(category),
		event.Timestamp,
		visitID,
		citizenID,
		officerID,
		event.Action,
		event.Reason,
		event.Device,
		event.ClientIP,
		event.RequestID,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByVisit reads materialized audit events for a visit.
func (s *Store) ListByVisit(ctx context.Context, visitID id.VisitID) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, visit_id, citizen_id, officer_id,
		       action, reason, device, client_ip, request_id
		FROM audit_events
		WHERE visit_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(visitID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event     audit.Event
			category  string
			visitUUID uuid.UUID
			citizen   sql.NullString
			officer   sql.NullString
		)
		if err := rows.Scan(&category, &event.Timestamp, &visitUUID, &citizen, &officer,
			&event.Action, &event.Reason, &event.Device, &event.ClientIP, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.VisitID = id.VisitID(visitUUID)
		if citizen.Valid {
			if cid, err := id.ParseCitizenID(citizen.String); err == nil {
				event.CitizenID = cid
			}
		}
		if officer.Valid {
			if oid, err := id.ParseOfficerID(officer.String); err == nil {
				event.OfficerID = oid
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
