package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between outbound Bangumi requests.
const DefaultInterval = 5 * time.Second

// Gate serializes outbound requests and spaces them by a minimum interval
// measured from the completion of the previous request. Only one caller holds
// the gate at a time, and idle time never accrues burst credit.
type Gate struct {
	interval time.Duration
	slot     chan struct{}
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error

	mu           sync.Mutex
	lastComplete time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock overrides the time source and sleep function. Tests use it to
// drive the gate with a fake clock.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// New constructs a gate. A non-positive interval disables spacing but still
// serializes callers.
func New(interval time.Duration, opts ...Option) *Gate {
	if interval < 0 {
		interval = 0
	}
	g := &Gate{
		interval: interval,
		slot:     make(chan struct{}, 1),
		now:      time.Now,
		sleep:    SleepWithContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Interval returns the configured spacing.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// AwaitTurn blocks until the caller may issue one request. The returned
// release func must be called once the request has completed (successfully
// or not); the next turn is measured from that moment. The first turn never
// waits for the interval.
func (g *Gate) AwaitTurn(ctx context.Context) (func(), error) {
	if ctx == nil {
		return nil, errors.New("ratelimit: context unavailable")
	}
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.mu.Lock()
	last := g.lastComplete
	g.mu.Unlock()

	if !last.IsZero() && g.interval > 0 {
		if wait := g.interval - g.now().Sub(last); wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				<-g.slot
				return nil, err
			}
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			g.lastComplete = g.now()
			g.mu.Unlock()
			<-g.slot
		})
	}
	return release, nil
}

// Do runs op inside one turn of the gate.
func (g *Gate) Do(ctx context.Context, op func(context.Context) error) error {
	release, err := g.AwaitTurn(ctx)
	if err != nil {
		return err
	}
	defer release()
	return op(ctx)
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
