package geofence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigil/pkg/domain-errors"
)

// Reference points in Delhi; distances cross-checked against surveyed values.
var (
	connaughtPlace = Coordinates{Lat: 28.6315, Lng: 77.2167}
	indiaGate      = Coordinates{Lat: 28.6129, Lng: 77.2295}
)

func TestValidate_AcceptsWithinTolerance(t *testing.T) {
	// ~111m per 0.001 degree of latitude
	near := Coordinates{Lat: connaughtPlace.Lat + 0.0005, Lng: connaughtPlace.Lng}

	decision, err := Validate(near, connaughtPlace, 100)
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.InDelta(t, 55.6, decision.DistanceMeters, 2)
	assert.Equal(t, 100.0, decision.ToleranceMeters)
}

func TestValidate_RejectsOutsideTolerance(t *testing.T) {
	decision, err := Validate(indiaGate, connaughtPlace, 200)
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	// CP to India Gate is roughly 2.4km
	assert.InDelta(t, 2400, decision.DistanceMeters, 150)
}

func TestValidate_ExactBoundaryAccepts(t *testing.T) {
	near := Coordinates{Lat: connaughtPlace.Lat + 0.0005, Lng: connaughtPlace.Lng}
	decision, err := Validate(near, connaughtPlace, 100)
	require.NoError(t, err)

	// accepted = distance <= tolerance, inclusive
	boundary, err := Validate(near, connaughtPlace, decision.DistanceMeters)
	require.NoError(t, err)
	assert.True(t, boundary.Accepted)
}

func TestValidate_ZeroDistance(t *testing.T) {
	decision, err := Validate(connaughtPlace, connaughtPlace, 0)
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.Equal(t, 0.0, decision.DistanceMeters)
}

func TestValidate_MalformedCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		current Coordinates
	}{
		{"NaN latitude", Coordinates{Lat: math.NaN(), Lng: 77.2}},
		{"NaN longitude", Coordinates{Lat: 28.6, Lng: math.NaN()}},
		{"latitude above range", Coordinates{Lat: 91, Lng: 0}},
		{"latitude below range", Coordinates{Lat: -90.1, Lng: 0}},
		{"longitude above range", Coordinates{Lat: 0, Lng: 180.5}},
		{"longitude below range", Coordinates{Lat: 0, Lng: -181}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.current, connaughtPlace, 100)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCoordinates))
		})
	}
}

func TestValidate_MalformedTarget(t *testing.T) {
	_, err := Validate(connaughtPlace, Coordinates{Lat: math.NaN(), Lng: 0}, 100)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCoordinates))
}

func TestValidate_NegativeTolerance(t *testing.T) {
	_, err := Validate(connaughtPlace, indiaGate, -1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidCoordinates))
}

func TestCoordinates_OriginIsValid(t *testing.T) {
	// (0,0) is a real place; it must never be conflated with "no fix".
	assert.True(t, Coordinates{Lat: 0, Lng: 0}.Valid())
}

func TestHaversineMeters_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Coordinates
		expected float64
		delta    float64
	}{
		{"same point", connaughtPlace, connaughtPlace, 0, 0.001},
		{"CP to India Gate", connaughtPlace, indiaGate, 2400, 150},
		{"one degree latitude at equator", Coordinates{0, 0}, Coordinates{1, 0}, 111195, 100},
		{"antimeridian crossing", Coordinates{0, 179.9}, Coordinates{0, -179.9}, 22239, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HaversineMeters(tt.a, tt.b), tt.delta)
		})
	}
}

func TestHaversineMeters_Symmetry(t *testing.T) {
	assert.Equal(t, HaversineMeters(connaughtPlace, indiaGate), HaversineMeters(indiaGate, connaughtPlace))
}
