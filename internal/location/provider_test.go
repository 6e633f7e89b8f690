package location

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/geofence"
	dErrors "vigil/pkg/domain-errors"
)

// scriptedPlatform returns pre-programmed results per call.
type scriptedPlatform struct {
	mu      sync.Mutex
	results []func(highAccuracy bool) (Fix, error)
	calls   []bool // high-accuracy flag per call
}

func (s *scriptedPlatform) CurrentLocation(_ context.Context, highAccuracy bool) (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, highAccuracy)
	if len(s.results) == 0 {
		return Fix{}, errors.New("no scripted result")
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next(highAccuracy)
}

func goodFix() Fix {
	return Fix{
		Coordinates:    geofence.Coordinates{Lat: 28.6315, Lng: 77.2167},
		AccuracyMeters: 12,
		AcquiredAt:     time.Now(),
	}
}

func fixResult(f Fix) func(bool) (Fix, error) {
	return func(bool) (Fix, error) { return f, nil }
}

func errResult(err error) func(bool) (Fix, error) {
	return func(bool) (Fix, error) { return Fix{}, err }
}

func newTestProvider(platform Platform) *Provider {
	return New(platform,
		WithAttemptTimeout(time.Second),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)
}

func TestAcquire_FirstAttemptSucceeds(t *testing.T) {
	platform := &scriptedPlatform{results: []func(bool) (Fix, error){fixResult(goodFix())}}
	p := newTestProvider(platform)

	assert.Equal(t, StatusIdle, p.Status())

	fix, err := p.Acquire(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, goodFix().Coordinates, fix.Coordinates)
	assert.Equal(t, StatusFound, p.Status())

	last, ok := p.LastFix()
	require.True(t, ok)
	assert.Equal(t, fix.Coordinates, last.Coordinates)
}

func TestAcquire_RetriesThenSucceeds(t *testing.T) {
	platform := &scriptedPlatform{results: []func(bool) (Fix, error){
		errResult(errors.New("gps warming up")),
		errResult(errors.New("gps warming up")),
		fixResult(goodFix()),
	}}
	p := newTestProvider(platform)

	fix, err := p.Acquire(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, goodFix().Coordinates, fix.Coordinates)
	assert.Len(t, platform.calls, 3)
}

func TestAcquire_ExhaustsRetries(t *testing.T) {
	platform := &scriptedPlatform{results: []func(bool) (Fix, error){
		errResult(errors.New("no signal")),
		errResult(errors.New("no signal")),
		errResult(errors.New("no signal")),
	}}
	p := newTestProvider(platform)

	_, err := p.Acquire(context.Background(), true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLocationUnavailable))
	assert.Equal(t, StatusError, p.Status())

	_, ok := p.LastFix()
	assert.False(t, ok, "no fix must be recorded on failure")
}

func TestAcquire_RejectsMalformedPlatformFix(t *testing.T) {
	bad := Fix{Coordinates: geofence.Coordinates{Lat: math.NaN(), Lng: 0}}
	platform := &scriptedPlatform{results: []func(bool) (Fix, error){
		fixResult(bad), fixResult(bad), fixResult(bad),
	}}
	p := newTestProvider(platform)

	_, err := p.Acquire(context.Background(), true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLocationUnavailable))
}

func TestAcquire_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	platform := &scriptedPlatform{results: []func(bool) (Fix, error){
		func(bool) (Fix, error) {
			cancel()
			return Fix{}, errors.New("no signal")
		},
	}}
	p := newTestProvider(platform)

	_, err := p.Acquire(ctx, true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLocationUnavailable))
	// Cancellation stops retries: only the one scripted call happened.
	assert.Len(t, platform.calls, 1)
}

func TestAcquireWithFallback_DegradesToCoarse(t *testing.T) {
	coarse := goodFix()
	coarse.AccuracyMeters = 150

	platform := &scriptedPlatform{results: []func(bool) (Fix, error){
		// Three high-accuracy failures, then a coarse success.
		errResult(errors.New("gps lock timeout")),
		errResult(errors.New("gps lock timeout")),
		errResult(errors.New("gps lock timeout")),
		fixResult(coarse),
	}}
	p := newTestProvider(platform)

	fix, err := p.AcquireWithFallback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, fix.AccuracyMeters)

	// First three calls requested high accuracy, the fallback did not.
	require.Len(t, platform.calls, 4)
	assert.True(t, platform.calls[0])
	assert.True(t, platform.calls[2])
	assert.False(t, platform.calls[3])
	assert.Equal(t, StatusFound, p.Status())
}
