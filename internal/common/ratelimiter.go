package common

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RateLimiter guarantees a minimum gap between requests.
// It keeps a single "next allowed request" timestamp shared by all callers
type RateLimiter struct {
	mu      sync.Mutex
	spacing time.Duration
	next    time.Time
	clock   clockwork.Clock
}

// NewRateLimiter creates a limiter that spaces requests according
// to the strictest of the provided restrictions
func NewRateLimiter(clock clockwork.Clock, restrictions ...Restriction) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rl := &RateLimiter{clock: clock}
	for _, restriction := range restrictions {
		if spacing := restriction.Spacing(); spacing > rl.spacing {
			rl.spacing = spacing
		}
	}
	return rl
}

// Spacing returns the minimum gap enforced between requests
func (rl *RateLimiter) Spacing() time.Duration {
	return rl.spacing
}

// Wait blocks until the caller is allowed to perform its request.
// The slot is reserved while holding the lock, so concurrent callers
// queue up one spacing after the other. The wait itself happens
// outside the lock and can be cancelled through the context
func (rl *RateLimiter) Wait(ctx context.Context) error {
	slot, wait := rl.reserve()
	if wait <= 0 {
		return nil
	}

	id := uuid.New()
	log.Ctx(ctx).Debug().Str("request", id.String()).Dur("wait", wait).Msg("Request delayed by rate limiter")
	select {
	case <-rl.clock.After(wait):
		return nil
	case <-ctx.Done():
		rl.release(slot)
		return trace.Wrap(ctx.Err())
	}
}

// reserve takes the next free slot and returns it together
// with how long the caller has to wait for it
func (rl *RateLimiter) reserve() (time.Time, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	slot := rl.next
	if slot.Before(now) {
		slot = now
	}
	rl.next = slot.Add(rl.spacing)
	return slot, slot.Sub(now)
}

// release gives back a slot that was never used.
// Only the last reserved slot can be returned, otherwise
// a later caller would end up too close to the one before
func (rl *RateLimiter) release(slot time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.next.Equal(slot.Add(rl.spacing)) {
		rl.next = slot
	}
}
