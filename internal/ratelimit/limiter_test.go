package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := New()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckHasNoSideEffects(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))

	for i := 0; i < 10; i++ {
		assert.True(t, l.Check("1.1.1.1", "message", 3, time.Minute))
	}
	// Ten checks without increments left the window empty.
	count, _ := l.Increment("1.1.1.1", "message", time.Minute)
	assert.Equal(t, 1, count)
}

func TestRateLimitMonotonicity(t *testing.T) {
	const limit = 5
	l, _ := newTestLimiter(time.Unix(1000, 0))

	for i := 0; i < limit; i++ {
		assert.True(t, l.Check("1.1.1.1", "message", limit, time.Minute), "check %d must pass", i+1)
		l.Increment("1.1.1.1", "message", time.Minute)
	}
	assert.False(t, l.Check("1.1.1.1", "message", limit, time.Minute), "check limit+1 must fail")
}

func TestWindowExpiryResets(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))

	for i := 0; i < 5; i++ {
		l.Increment("1.1.1.1", "connection", time.Minute)
	}
	assert.False(t, l.Check("1.1.1.1", "connection", 5, time.Minute))

	*now = now.Add(61 * time.Second)
	assert.True(t, l.Check("1.1.1.1", "connection", 5, time.Minute), "stale window is ignored")
	count, start := l.Increment("1.1.1.1", "connection", time.Minute)
	assert.Equal(t, 1, count, "stale window is replaced")
	assert.Equal(t, *now, start)
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))

	l.Increment("1.1.1.1", "message", time.Minute)
	l.Increment("1.1.1.1", "message", time.Minute)

	assert.True(t, l.Check("2.2.2.2", "message", 2, time.Minute), "other sources are unaffected")
	assert.True(t, l.Check("1.1.1.1", "connection", 2, time.Minute), "other actions are unaffected")
	assert.False(t, l.Check("1.1.1.1", "message", 2, time.Minute))
}

func TestZeroLimitAlwaysRefuses(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	assert.False(t, l.Check("1.1.1.1", "message", 0, time.Minute))
}

func TestCleanupDropsStaleWindows(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))

	l.Increment("1.1.1.1", "message", time.Minute)
	l.Increment("2.2.2.2", "message", time.Minute)
	*now = now.Add(10 * time.Minute)
	l.Increment("3.3.3.3", "message", time.Minute)

	l.Cleanup(5 * time.Minute)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.windows, 1)
	assert.Contains(t, l.windows, key("3.3.3.3", "message"))
}
