package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	start := time.Unix(1000, 0)
	rl := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: 3 * time.Second}, start)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allowAt(start), "frame %d", i)
	}
	assert.False(t, rl.allowAt(start))

	// One token per second.
	assert.False(t, rl.allowAt(start.Add(500*time.Millisecond)))
	assert.True(t, rl.allowAt(start.Add(time.Second)))
	assert.False(t, rl.allowAt(start.Add(time.Second)))
}

func TestRateLimiterCapsAtCapacity(t *testing.T) {
	start := time.Unix(1000, 0)
	rl := newRateLimiter(RateLimitConfig{Burst: 2, RefillInterval: time.Second}, start)

	later := start.Add(time.Hour)
	assert.True(t, rl.allowAt(later))
	assert.True(t, rl.allowAt(later))
	assert.False(t, rl.allowAt(later))
}

func TestRateLimiterInvalidConfig(t *testing.T) {
	start := time.Unix(1000, 0)
	rl := newRateLimiter(RateLimitConfig{}, start)

	assert.True(t, rl.allowAt(start))
	assert.False(t, rl.allowAt(start))
	assert.True(t, rl.allowAt(start.Add(time.Second)))
}

func TestRateLimiterIgnoresClockGoingBackwards(t *testing.T) {
	start := time.Unix(1000, 0)
	rl := newRateLimiter(RateLimitConfig{Burst: 1, RefillInterval: time.Second}, start)

	assert.True(t, rl.allowAt(start))
	assert.False(t, rl.allowAt(start.Add(-time.Minute)))
	assert.True(t, rl.allowAt(start.Add(time.Second)))
}
