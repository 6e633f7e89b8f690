package visit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vigil/internal/geofence"
	"vigil/internal/risk"
	"vigil/internal/visit/models"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
	txcontext "vigil/pkg/platform/tx"
)

// Postgres stores visits. Joins a shared transaction when one is present
// in context, which is how the deceased exception path keeps the visit
// and citizen writes atomic.
//
// Transition serialization is two-layered: inside a transaction the
// SELECT ... FOR UPDATE holds the row lock across validate and mutate;
// outside one, the version column makes the final UPDATE conditional so
// a concurrent writer surfaces as ErrConflict instead of a lost update.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const visitColumns = `id, citizen_id, officer_id, status, visit_type, scheduled_at,
	started_at, completed_at, location_lat, location_lng, risk_score, risk_band,
	assessment, notes, duration_minutes, cancellation_category, cancellation_notes,
	override_reason, version, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, v *models.Visit) error {
	assessment, err := marshalAssessment(v.Assessment)
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO visits (`+visitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, visitArgs(v, assessment)...)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, visitID id.VisitID) (*models.Visit, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = $1`, uuid.UUID(visitID))
	return scanVisit(row)
}

func (s *Postgres) ListByOfficer(ctx context.Context, officerID id.OfficerID) ([]*models.Visit, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE officer_id = $1 ORDER BY scheduled_at`,
		uuid.UUID(officerID))
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var visits []*models.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Execute reads the visit, validates, mutates, and writes back with a
// conditional version bump. Inside a transaction the row is additionally
// locked with FOR UPDATE.
func (s *Postgres) Execute(
	ctx context.Context,
	visitID id.VisitID,
	validate func(*models.Visit) error,
	mutate func(*models.Visit),
) (*models.Visit, error) {
	conn := s.conn(ctx)

	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	v, err := scanVisit(conn.QueryRowContext(ctx, query, uuid.UUID(visitID)))
	if err != nil {
		return nil, err
	}

	if err := validate(v); err != nil {
		return nil, err
	}
	previousVersion := v.Version
	mutate(v)
	v.Version = previousVersion + 1

	assessment, err := marshalAssessment(v.Assessment)
	if err != nil {
		return nil, err
	}
	res, err := conn.ExecContext(ctx, `
		UPDATE visits
		SET status = $2, scheduled_at = $3, started_at = $4, completed_at = $5,
			location_lat = $6, location_lng = $7, risk_score = $8, risk_band = $9,
			assessment = $10, notes = $11, duration_minutes = $12,
			cancellation_category = $13, cancellation_notes = $14,
			override_reason = $15, version = $16, updated_at = $17
		WHERE id = $1 AND version = $18
	`, uuid.UUID(v.ID), string(v.Status), v.ScheduledAt, v.StartedAt, v.CompletedAt,
		nullLat(v.Location), nullLng(v.Location), nullInt(v.RiskScore), nullString(string(v.RiskBand)),
		assessment, v.Notes, v.DurationMinutes,
		cancellationCategory(v.CancellationReason), cancellationNotes(v.CancellationReason),
		v.OverrideReason, v.Version, v.UpdatedAt, previousVersion)
	if err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}
	if affected == 0 {
		return nil, sentinel.ErrConflict
	}
	return v, nil
}

func (s *Postgres) AppendRescheduleHistory(ctx context.Context, entry models.RescheduleEntry) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO visit_reschedule_history (visit_id, moved_from, moved_to, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(entry.VisitID), entry.From, entry.To, entry.Notes, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("append reschedule history: %w", err)
	}
	return nil
}

func (s *Postgres) ListRescheduleHistory(ctx context.Context, visitID id.VisitID) ([]models.RescheduleEntry, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT visit_id, moved_from, moved_to, notes, recorded_at
		FROM visit_reschedule_history
		WHERE visit_id = $1
		ORDER BY recorded_at
	`, uuid.UUID(visitID))
	if err != nil {
		return nil, fmt.Errorf("list reschedule history: %w", err)
	}
	defer rows.Close()

	var entries []models.RescheduleEntry
	for rows.Next() {
		var (
			entry models.RescheduleEntry
			raw   uuid.UUID
		)
		if err := rows.Scan(&raw, &entry.From, &entry.To, &entry.Notes, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan reschedule entry: %w", err)
		}
		entry.VisitID = id.VisitID(raw)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var (
		v           models.Visit
		rawID       uuid.UUID
		rawCitizen  uuid.UUID
		rawOfficer  uuid.UUID
		status      string
		visitType   string
		lat, lng    sql.NullFloat64
		riskScore   sql.NullInt64
		riskBand    sql.NullString
		assessment  []byte
		cancelCat   sql.NullString
		cancelNotes sql.NullString
	)
	err := row.Scan(&rawID, &rawCitizen, &rawOfficer, &status, &visitType, &v.ScheduledAt,
		&v.StartedAt, &v.CompletedAt, &lat, &lng, &riskScore, &riskBand,
		&assessment, &v.Notes, &v.DurationMinutes, &cancelCat, &cancelNotes,
		&v.OverrideReason, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan visit: %w", err)
	}

	v.ID = id.VisitID(rawID)
	v.CitizenID = id.CitizenID(rawCitizen)
	v.OfficerID = id.OfficerID(rawOfficer)
	v.Status = models.VisitStatus(status)
	v.VisitType = models.VisitType(visitType)
	if lat.Valid && lng.Valid {
		v.Location = &geofence.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if riskScore.Valid {
		score := int(riskScore.Int64)
		v.RiskScore = &score
	}
	if riskBand.Valid {
		v.RiskBand = risk.Band(riskBand.String)
	}
	if len(assessment) > 0 {
		var a risk.Assessment
		if err := json.Unmarshal(assessment, &a); err != nil {
			return nil, fmt.Errorf("unmarshal assessment: %w", err)
		}
		v.Assessment = &a
	}
	if cancelCat.Valid {
		v.CancellationReason = &models.CancellationReason{
			Category: models.CancellationCategory(cancelCat.String),
			Notes:    cancelNotes.String,
		}
	}
	return &v, nil
}

func visitArgs(v *models.Visit, assessment []byte) []any {
	return []any{
		uuid.UUID(v.ID), uuid.UUID(v.CitizenID), uuid.UUID(v.OfficerID),
		string(v.Status), string(v.VisitType), v.ScheduledAt,
		v.StartedAt, v.CompletedAt, nullLat(v.Location), nullLng(v.Location),
		nullInt(v.RiskScore), nullString(string(v.RiskBand)),
		assessment, v.Notes, v.DurationMinutes,
		cancellationCategory(v.CancellationReason), cancellationNotes(v.CancellationReason),
		v.OverrideReason, v.Version, v.CreatedAt, v.UpdatedAt,
	}
}

func marshalAssessment(a *risk.Assessment) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal assessment: %w", err)
	}
	return raw, nil
}

func nullLat(c *geofence.Coordinates) sql.NullFloat64 {
	if c == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}
}

func nullLng(c *geofence.Coordinates) sql.NullFloat64 {
	if c == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func cancellationCategory(r *models.CancellationReason) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r.Category), Valid: true}
}

func cancellationNotes(r *models.CancellationReason) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: r.Notes, Valid: true}
}
