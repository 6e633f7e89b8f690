package citizen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vigil/internal/citizen/models"
	"vigil/internal/geofence"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
	txcontext "vigil/pkg/platform/tx"
)

// Postgres stores citizen records. Participates in a shared transaction
// when one is present in context, which is how the Deceased exception
// path keeps the visit and citizen writes atomic.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const citizenColumns = `id, full_name, home_lat, home_lng, lifecycle_status, updated_at`

func (s *Postgres) FindByID(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+citizenColumns+` FROM citizens WHERE id = $1`, uuid.UUID(citizenID))
	return scanCitizen(row)
}

// Execute locks the citizen row, validates, mutates, and writes back.
// Callers on the Deceased path run this inside a shared transaction from
// context; FOR UPDATE holds the row lock across validate and mutate.
func (s *Postgres) Execute(
	ctx context.Context,
	citizenID id.CitizenID,
	validate func(*models.Citizen) error,
	mutate func(*models.Citizen),
) (*models.Citizen, error) {
	conn := s.conn(ctx)

	row := conn.QueryRowContext(ctx,
		`SELECT `+citizenColumns+` FROM citizens WHERE id = $1 FOR UPDATE`, uuid.UUID(citizenID))
	c, err := scanCitizen(row)
	if err != nil {
		return nil, err
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	_, err = conn.ExecContext(ctx, `
		UPDATE citizens
		SET lifecycle_status = $2, updated_at = $3
		WHERE id = $1
	`, uuid.UUID(c.ID), string(c.LifecycleStatus), c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update citizen: %w", err)
	}
	return c, nil
}

func scanCitizen(row *sql.Row) (*models.Citizen, error) {
	var (
		c       models.Citizen
		rawID   uuid.UUID
		status  string
		lat, lng float64
	)
	err := row.Scan(&rawID, &c.FullName, &lat, &lng, &status, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan citizen: %w", err)
	}
	c.ID = id.CitizenID(rawID)
	c.HomeCoordinates = geofence.Coordinates{Lat: lat, Lng: lng}
	c.LifecycleStatus = models.LifecycleStatus(status)
	return &c, nil
}
