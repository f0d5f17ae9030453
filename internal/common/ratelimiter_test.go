package common

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const testSpacing = 333 * time.Millisecond

func TestRestrictionSpacing(t *testing.T) {
	require.Equal(t, testSpacing, Restriction{Requests: 1, Duration: testSpacing}.Spacing())
	require.Equal(t, 100*time.Millisecond, Restriction{Requests: 10, Duration: time.Second}.Spacing())
	require.Zero(t, Restriction{}.Spacing())
}

func TestRateLimiterKeepsStrictestRestriction(t *testing.T) {
	rl := NewRateLimiter(clockwork.NewFakeClock(),
		Restriction{Requests: 10, Duration: time.Second},
		Restriction{Requests: 1, Duration: testSpacing},
	)
	require.Equal(t, testSpacing, rl.Spacing())
}

func TestRateLimiterSequentialRequests(t *testing.T) {
	rl := NewRateLimiter(clockwork.NewRealClock(), Restriction{Requests: 1, Duration: testSpacing})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 2*testSpacing)
	require.Less(t, elapsed, time.Second)
}

func TestRateLimiterWaitsForFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(clock, Restriction{Requests: 1, Duration: testSpacing})
	ctx := context.Background()

	// First request goes through immediately
	require.NoError(t, rl.Wait(ctx))

	done := make(chan error, 1)
	go func() { done <- rl.Wait(ctx) }()

	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("second request was not delayed")
	default:
	}

	clock.Advance(testSpacing)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second request was never allowed")
	}
}

func TestRateLimiterCancelledWait(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(clock, Restriction{Requests: 1, Duration: testSpacing})
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, rl.Wait(ctx))

	// The cancelled caller gave its slot back
	_, wait := rl.reserve()
	require.Equal(t, testSpacing, wait)
}

func TestRateLimiterConcurrentReservations(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(clock, Restriction{Requests: 1, Duration: testSpacing})

	const callers = 5
	waits := make([]time.Duration, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, waits[i] = rl.reserve()
		}(i)
	}
	wg.Wait()

	// Every caller got its own slot, one spacing apart
	sort.Slice(waits, func(i, j int) bool { return waits[i] < waits[j] })
	for i, wait := range waits {
		require.Equal(t, time.Duration(i)*testSpacing, wait)
	}
}
