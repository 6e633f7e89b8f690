// Package geofence decides whether a field officer is physically close
// enough to a citizen's registered address to begin a visit.
//
// Domain purity: no I/O, no context.Context, no clock. Validate is total
// for well-formed coordinates; malformed coordinates are the only error.
package geofence

import (
	"math"

	dErrors "vigil/pkg/domain-errors"
)

// Coordinates is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are well-formed WGS84 values.
// NaN and out-of-range values are rejected; (0,0) is a legal coordinate
// (Gulf of Guinea) and deliberately NOT treated as "unset" - absence of a
// fix must be expressed as a missing value, never a zero sentinel.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Decision is the outcome of a geofence check. DistanceMeters is always
// populated so a rejected officer can see how far off they are.
type Decision struct {
	Accepted        bool
	DistanceMeters  float64
	ToleranceMeters float64
}

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Validate compares an acquired location against a target and tolerance.
// Distance uses the haversine great-circle formula rather than a planar
// approximation: registered addresses across a large urban jurisdiction can
// be several kilometers apart, where planar error becomes material.
func Validate(current, target Coordinates, toleranceMeters float64) (Decision, error) {
	if !current.Valid() {
		return Decision{}, dErrors.New(dErrors.CodeInvalidCoordinates, "current location is not a valid coordinate").
			WithDetail("lat", current.Lat).
			WithDetail("lng", current.Lng)
	}
	if !target.Valid() {
		return Decision{}, dErrors.New(dErrors.CodeInvalidCoordinates, "target location is not a valid coordinate").
			WithDetail("lat", target.Lat).
			WithDetail("lng", target.Lng)
	}
	if math.IsNaN(toleranceMeters) || toleranceMeters < 0 {
		return Decision{}, dErrors.New(dErrors.CodeInvalidCoordinates, "tolerance must be a non-negative number of meters")
	}

	distance := HaversineMeters(current, target)
	return Decision{
		Accepted:        distance <= toleranceMeters,
		DistanceMeters:  distance,
		ToleranceMeters: toleranceMeters,
	}, nil
}

// HaversineMeters returns the great-circle distance between two coordinates.
func HaversineMeters(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
