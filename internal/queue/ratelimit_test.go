package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testRateLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRateLimiter(rdb)
}

func TestRateLimiterAllowsUpToBurstThenThrottles(t *testing.T) {
	rl := testRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := rl.Allow(ctx, "tenant-1", "start", 1, 3)
		require.NoError(t, err)
		require.True(t, res.Allowed, "call %d should be allowed within burst", i)
	}

	res, err := rl.Allow(ctx, "tenant-1", "start", 1, 3)
	require.NoError(t, err)
	require.False(t, res.Allowed, "call beyond burst should be throttled")
}

func TestRateLimiterScopesAreIndependent(t *testing.T) {
	rl := testRateLimiter(t)
	ctx := context.Background()

	res, err := rl.Allow(ctx, "tenant-1", "start", 1, 1)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = rl.Allow(ctx, "tenant-1", "results", 1, 1)
	require.NoError(t, err)
	require.True(t, res.Allowed, "a distinct scope should have its own bucket")
}
