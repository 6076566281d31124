package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThrottle(t *testing.T) *ShiftThrottle {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewShiftThrottle(client)
}

func TestThrottleAdmitsUpToLimit(t *testing.T) {
	throttle := newTestThrottle(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		ok, err := throttle.Admit(ctx, 1, 3, now)
		require.NoError(t, err)
		assert.True(t, ok, "admission %d should pass", i+1)
	}
	ok, err := throttle.Admit(ctx, 1, 3, now)
	require.NoError(t, err)
	assert.False(t, ok, "fourth admission should be rejected")
}

func TestThrottleCountsPerShift(t *testing.T) {
	throttle := newTestThrottle(t)
	ctx := context.Background()
	now := time.Now()

	ok, err := throttle.Admit(ctx, 1, 1, now)
	require.NoError(t, err)
	require.True(t, ok)

	// A different shift has its own counter.
	ok, err = throttle.Admit(ctx, 2, 1, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThrottleResetsNextWindow(t *testing.T) {
	throttle := newTestThrottle(t)
	ctx := context.Background()
	now := time.Now()

	ok, err := throttle.Admit(ctx, 1, 1, now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = throttle.Admit(ctx, 1, 1, now)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = throttle.Admit(ctx, 1, 1, now.Add(throttle.window))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThrottleDisabledWithoutLimit(t *testing.T) {
	throttle := newTestThrottle(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 50; i++ {
		ok, err := throttle.Admit(ctx, 1, 0, now)
		require.NoError(t, err)
		require.True(t, ok)
	}
	count, err := throttle.WindowCount(ctx, 1, now)
	require.NoError(t, err)
	assert.Zero(t, count, "disabled throttle must not touch counters")
}

func TestWindowCountReflectsAdmissions(t *testing.T) {
	throttle := newTestThrottle(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 4; i++ {
		_, err := throttle.Admit(ctx, 9, 10, now)
		require.NoError(t, err)
	}
	count, err := throttle.WindowCount(ctx, 9, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}
