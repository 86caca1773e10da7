package resolver

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Governor bounds resolution concurrency and paces request issue.
//
// It owns the only state shared between concurrent resolutions: the permit
// pool and the completed-request counter. The pool makes exceeding the
// concurrency ceiling impossible by construction: a resolution blocks on
// Acquire until a permit frees up. The counter is observability only; it
// feeds the requests-per-minute rate shown during a run.
type Governor struct {
	// sem is the fixed pool of concurrency permits.
	sem *semaphore.Weighted

	// limit is the pool size, kept for Stats.
	limit int64

	// paceMin and paceMax bound the randomized delay imposed before each
	// request. Equal values (including zero) make the delay fixed.
	paceMin time.Duration
	paceMax time.Duration

	// completed counts finished resolutions. Atomic because every
	// resolution goroutine increments it.
	completed atomic.Int64

	// start anchors the rate computation.
	start time.Time
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithPaceRange sets the bounds of the randomized pre-request delay.
// Pass zero for both to disable pacing.
func WithPaceRange(min, max time.Duration) GovernorOption {
	return func(g *Governor) {
		g.paceMin = min
		g.paceMax = max
	}
}

// NewGovernor creates a Governor with the given permit pool size.
// If limit is not positive, a single permit is used.
func NewGovernor(limit int, opts ...GovernorOption) *Governor {
	if limit <= 0 {
		limit = 1
	}

	g := &Governor{
		sem:     semaphore.NewWeighted(int64(limit)),
		limit:   int64(limit),
		paceMin: 500 * time.Millisecond,
		paceMax: 2 * time.Second,
		start:   time.Now(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Acquire blocks until a concurrency permit is available or ctx is done.
// Every successful Acquire must be paired with exactly one Release,
// regardless of how the resolution ends.
func (g *Governor) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a permit to the pool.
func (g *Governor) Release() {
	g.sem.Release(1)
}

// Pace sleeps for a random duration within the configured range, honoring
// context cancellation. A zero range returns immediately.
func (g *Governor) Pace(ctx context.Context) error {
	delay := g.paceMin
	if spread := g.paceMax - g.paceMin; spread > 0 {
		delay += rand.N(spread)
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Complete records one finished resolution and returns the running total
// plus the instantaneous requests-per-minute rate since the Governor was
// created.
func (g *Governor) Complete() (int64, float64) {
	count := g.completed.Add(1)
	return count, g.rate(count)
}

// Completed returns the number of resolutions finished so far.
func (g *Governor) Completed() int64 {
	return g.completed.Load()
}

// Rate returns the current requests-per-minute rate.
func (g *Governor) Rate() float64 {
	return g.rate(g.completed.Load())
}

// rate computes requests per minute for a given completion count.
func (g *Governor) rate(count int64) float64 {
	elapsed := time.Since(g.start)
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Minutes()
}

// Limit returns the permit pool size.
func (g *Governor) Limit() int {
	return int(g.limit)
}
