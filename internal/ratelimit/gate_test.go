package ratelimit_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgmexport/internal/ratelimit"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func TestFirstTurnDoesNotWait(t *testing.T) {
	clock := newFakeClock()
	gate := ratelimit.New(5*time.Second, ratelimit.WithClock(clock.Now, clock.Sleep))

	release, err := gate.AwaitTurn(context.Background())
	require.NoError(t, err)
	release()

	assert.Empty(t, clock.sleeps)
}

func TestIntervalMeasuredFromCompletion(t *testing.T) {
	clock := newFakeClock()
	gate := ratelimit.New(5*time.Second, ratelimit.WithClock(clock.Now, clock.Sleep))
	ctx := context.Background()

	release, err := gate.AwaitTurn(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Second) // request takes 2s
	release()

	clock.Advance(1 * time.Second)
	release, err = gate.AwaitTurn(ctx)
	require.NoError(t, err)
	release()

	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 4*time.Second, clock.sleeps[0])
}

func TestIdleTimeDoesNotAccrueBurst(t *testing.T) {
	clock := newFakeClock()
	gate := ratelimit.New(5*time.Second, ratelimit.WithClock(clock.Now, clock.Sleep))
	ctx := context.Background()

	release, err := gate.AwaitTurn(ctx)
	require.NoError(t, err)
	release()

	clock.Advance(time.Minute)

	for i := 0; i < 3; i++ {
		release, err = gate.AwaitTurn(ctx)
		require.NoError(t, err)
		release()
	}
	// First call after idle is free, the next two each wait the full interval.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clock.sleeps)
}

func TestReleaseIsIdempotent(t *testing.T) {
	gate := ratelimit.New(0)
	release, err := gate.AwaitTurn(context.Background())
	require.NoError(t, err)
	release()
	release()

	release, err = gate.AwaitTurn(context.Background())
	require.NoError(t, err)
	release()
}

func TestCancelledWhileWaitingForSlot(t *testing.T) {
	gate := ratelimit.New(time.Hour)
	release, err := gate.AwaitTurn(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gate.AwaitTurn(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelledWhileSleepingFreesSlot(t *testing.T) {
	clock := newFakeClock()
	gate := ratelimit.New(time.Hour, ratelimit.WithClock(clock.Now, clock.Sleep))
	release, err := gate.AwaitTurn(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gate.AwaitTurn(ctx)
	require.ErrorIs(t, err, context.Canceled)

	done := make(chan error, 1)
	go func() {
		release, err := gate.AwaitTurn(context.Background())
		if err == nil {
			release()
		}
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("gate slot was not released after cancellation")
	}
}

func TestConcurrentCallersAreSpaced(t *testing.T) {
	const interval = 30 * time.Millisecond
	gate := ratelimit.New(interval)

	var (
		mu     sync.Mutex
		starts []time.Time
		active int
		peak   int
	)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				starts = append(starts, time.Now())
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, starts, 4)
	assert.Equal(t, 1, peak)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), interval)
	}
}

func TestSleepWithContext(t *testing.T) {
	require.NoError(t, ratelimit.SleepWithContext(context.Background(), 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ratelimit.SleepWithContext(ctx, time.Second), context.Canceled)
}
