// Package location acquires the officer device's current coordinates with
// timeout, retry, and a coarse-fix degraded fallback.
//
// The provider runs on the officer's device side of the system; the
// lifecycle engine never calls it. It only ever hands the engine a verified
// fix or nothing: when no fix can be acquired the caller passes "no
// candidate location" to the engine, never a fabricated coordinate.
package location

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vigil/internal/geofence"
	dErrors "vigil/pkg/domain-errors"
)

// Fix is a verified device location.
type Fix struct {
	Coordinates    geofence.Coordinates
	AccuracyMeters float64
	AcquiredAt     time.Time
}

// Status is the observable acquisition state for consumer polling.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusDetecting Status = "detecting"
	StatusFound     Status = "found"
	StatusError     Status = "error"
)

// Platform abstracts the device location API. CurrentLocation blocks until
// a fix is available, the context expires, or the platform fails.
type Platform interface {
	CurrentLocation(ctx context.Context, highAccuracy bool) (Fix, error)
}

// Provider wraps a Platform with retry and status tracking. Safe for
// concurrent use; acquisition attempts themselves are serialized per
// Provider because a device has one GPS radio.
type Provider struct {
	platform Platform
	logger   *slog.Logger

	attemptTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration

	mu      sync.Mutex
	status  Status
	lastFix *Fix
}

// Option configures a Provider.
type Option func(*Provider)

// WithAttemptTimeout bounds each individual platform call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(p *Provider) { p.attemptTimeout = d }
}

// WithMaxRetries sets how many times a failed attempt is retried.
func WithMaxRetries(n int) Option {
	return func(p *Provider) { p.maxRetries = n }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Provider) { p.retryDelay = d }
}

// WithLogger sets the logger for attempt failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// New constructs a Provider over the given platform API.
func New(platform Platform, opts ...Option) *Provider {
	p := &Provider{
		platform:       platform,
		attemptTimeout: 10 * time.Second,
		maxRetries:     2,
		retryDelay:     500 * time.Millisecond,
		status:         StatusIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status returns the current acquisition state.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LastFix returns the most recent verified fix, if any.
func (p *Provider) LastFix() (Fix, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastFix == nil {
		return Fix{}, false
	}
	return *p.lastFix, true
}

// Acquire attempts to get a fix in the requested accuracy mode, retrying
// failed attempts up to the configured limit. On exhaustion it returns a
// location_unavailable error; it never invents a location.
func (p *Provider) Acquire(ctx context.Context, highAccuracy bool) (Fix, error) {
	p.setStatus(StatusDetecting)

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				p.setStatus(StatusError)
				return Fix{}, dErrors.Wrap(ctx.Err(), dErrors.CodeLocationUnavailable, "location acquisition cancelled")
			case <-time.After(p.retryDelay):
			}
		}

		fix, err := p.attempt(ctx, highAccuracy)
		if err == nil {
			p.recordFix(fix)
			return fix, nil
		}
		lastErr = err
		if p.logger != nil {
			p.logger.WarnContext(ctx, "location attempt failed",
				"attempt", attempt+1,
				"high_accuracy", highAccuracy,
				"error", err,
			)
		}
		if ctx.Err() != nil {
			break
		}
	}

	p.setStatus(StatusError)
	return Fix{}, dErrors.Wrap(lastErr, dErrors.CodeLocationUnavailable, "could not acquire a verified location")
}

// AcquireWithFallback tries a high-accuracy fix first and, if that fails,
// degrades to a coarse fix. The degraded path exists so an officer in a
// building with poor GPS signal is not blocked indefinitely; the coarser
// accuracy still feeds the geofence gate honestly via AccuracyMeters.
func (p *Provider) AcquireWithFallback(ctx context.Context) (Fix, error) {
	fix, err := p.Acquire(ctx, true)
	if err == nil {
		return fix, nil
	}
	if ctx.Err() != nil {
		return Fix{}, err
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "falling back to coarse location fix")
	}
	return p.Acquire(ctx, false)
}

func (p *Provider) attempt(ctx context.Context, highAccuracy bool) (Fix, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	fix, err := p.platform.CurrentLocation(attemptCtx, highAccuracy)
	if err != nil {
		return Fix{}, err
	}
	if !fix.Coordinates.Valid() {
		return Fix{}, dErrors.New(dErrors.CodeInvalidCoordinates, "platform returned malformed coordinates")
	}
	return fix, nil
}

func (p *Provider) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

func (p *Provider) recordFix(fix Fix) {
	p.mu.Lock()
	p.status = StatusFound
	p.lastFix = &fix
	p.mu.Unlock()
}
