package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstPerKey(t *testing.T) {
	rl, err := NewRateLimiter(4, 1)
	require.NoError(t, err)

	for i := 0; i < burstFactor; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterReusesEvictedLimiter(t *testing.T) {
	rl, err := NewRateLimiter(1, 1)
	require.NoError(t, err)

	first := rl.limiter("a")
	for i := 0; i < burstFactor; i++ {
		first.Allow()
	}
	second := rl.limiter("b")
	assert.Same(t, first, second)
	assert.False(t, rl.Allow("b"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl, err := NewRateLimiter(1, -1)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("x"))
	}

	var nilLimiter *RateLimiter
	require.True(t, nilLimiter.Allow("x"))
}

func TestRateLimiterRejectsInvalidSettings(t *testing.T) {
	_, err := NewRateLimiter(0, 1)
	require.Error(t, err)
	_, err = NewRateLimiter(1, 0)
	require.Error(t, err)
}
