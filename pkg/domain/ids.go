// Package domain defines typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a VisitID can never be passed where a CitizenID is expected).
// Parse functions enforce the trust-boundary invariant that IDs are valid,
// non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
)

// VisitID identifies a scheduled field visit.
type VisitID uuid.UUID

// CitizenID identifies a registered citizen. Citizen records are owned by
// the portal backend; this service only references them.
type CitizenID uuid.UUID

// OfficerID identifies the field officer assigned to a visit.
type OfficerID uuid.UUID

func (v VisitID) String() string   { return uuid.UUID(v).String() }
func (c CitizenID) String() string { return uuid.UUID(c).String() }
func (o OfficerID) String() string { return uuid.UUID(o).String() }

func (v VisitID) IsNil() bool   { return uuid.UUID(v) == uuid.Nil }
func (c CitizenID) IsNil() bool { return uuid.UUID(c) == uuid.Nil }
func (o OfficerID) IsNil() bool { return uuid.UUID(o) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings so JSON payloads
// (responses, audit events) never expose the raw byte array form.

func (v VisitID) MarshalText() ([]byte, error)   { return []byte(v.String()), nil }
func (c CitizenID) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (o OfficerID) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (v *VisitID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*v = VisitID(u)
	return nil
}

func (c *CitizenID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*c = CitizenID(u)
	return nil
}

func (o *OfficerID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*o = OfficerID(u)
	return nil
}

// NewVisitID returns a fresh random visit identifier.
func NewVisitID() VisitID { return VisitID(uuid.New()) }

// ParseVisitID validates and parses a visit ID string.
func ParseVisitID(s string) (VisitID, error) {
	u, err := parseUUID(s, "visit id")
	return VisitID(u), err
}

// ParseCitizenID validates and parses a citizen ID string.
func ParseCitizenID(s string) (CitizenID, error) {
	u, err := parseUUID(s, "citizen id")
	return CitizenID(u), err
}

// ParseOfficerID validates and parses an officer ID string.
func ParseOfficerID(s string) (OfficerID, error) {
	u, err := parseUUID(s, "officer id")
	return OfficerID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be the nil UUID")
	}
	return u, nil
}
