package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(max int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewRateLimiter(NewMemoryRateLimitStore(), max, window).WithClock(clock.Now)
	return l, clock
}

func TestRateLimiterDeniesBeyondMax(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("login:a@b.co"), "attempt %d should pass", i+1)
	}
	assert.False(t, l.Allow("login:a@b.co"), "attempt 4 should be denied")
	assert.False(t, l.Allow("login:a@b.co"))
}

func TestRateLimiterWindowReset(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	clock.Advance(time.Minute)
	assert.True(t, l.Allow("k"), "window elapsed, counter resets lazily")
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow("login:a@b.co"))
	assert.False(t, l.Allow("login:a@b.co"))
	assert.True(t, l.Allow("login:c@d.co"))
}

func TestRateLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	l.Reset("k")
	assert.True(t, l.Allow("k"))
}

func TestRateLimiterSweepPurgesIdleEntries(t *testing.T) {
	store := NewMemoryRateLimitStore()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewRateLimiter(store, 5, time.Minute).WithClock(clock.Now)

	l.Allow("stale")
	clock.Advance(30 * time.Minute)
	l.Allow("fresh")

	clock.Advance(31 * time.Minute) // "stale" idle 61m, "fresh" idle 31m
	l.Sweep()

	_, staleExists := store.Get("stale")
	_, freshExists := store.Get("fresh")
	assert.False(t, staleExists)
	assert.True(t, freshExists)
}
