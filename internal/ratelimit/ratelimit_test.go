package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(NewRedisCounterStore(client), testLogger()), mr
}

func TestCheckRateLimit_Sequence(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	wantAllowed := []bool{true, true, true, false}
	wantRemaining := []int64{2, 1, 0, 0}

	for i := range wantAllowed {
		d := limiter.CheckRateLimit(ctx, "api:203.0.113.7", 3, 60*time.Second)
		assert.Equal(t, wantAllowed[i], d.Allowed, "call %d", i+1)
		assert.Equal(t, wantRemaining[i], d.Remaining, "call %d", i+1)
	}
}

func TestCheckRateLimit_WindowReset(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.CheckRateLimit(ctx, "api:key", 3, 60*time.Second)
	}
	d := limiter.CheckRateLimit(ctx, "api:key", 3, 60*time.Second)
	require.False(t, d.Allowed)

	mr.FastForward(61 * time.Second)

	d = limiter.CheckRateLimit(ctx, "api:key", 3, 60*time.Second)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(2), d.Remaining)
}

func TestCheckRateLimit_ResetAtTracksTTL(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	limiter.CheckRateLimit(ctx, "api:key", 10, 60*time.Second)
	mr.FastForward(40 * time.Second)

	d := limiter.CheckRateLimit(ctx, "api:key", 10, 60*time.Second)
	assert.WithinDuration(t, time.Now().Add(20*time.Second), d.ResetAt, 2*time.Second)
}

func TestCheckRateLimit_LocalFallbackWithoutStore(t *testing.T) {
	limiter := New(nil, testLogger())

	ctx := context.Background()

	wantAllowed := []bool{true, true, false}
	for i := range wantAllowed {
		d := limiter.CheckRateLimit(ctx, "api:key", 2, time.Minute)
		assert.Equal(t, wantAllowed[i], d.Allowed, "call %d", i+1)
	}
}

func TestCheckRateLimit_FallbackOnStoreFailure(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	mr.Close()

	ctx := context.Background()

	d := limiter.CheckRateLimit(ctx, "api:key", 2, time.Minute)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Remaining)

	limiter.CheckRateLimit(ctx, "api:key", 2, time.Minute)
	d = limiter.CheckRateLimit(ctx, "api:key", 2, time.Minute)
	assert.False(t, d.Allowed)
}

func TestTrackTokenUsage_Additive(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	limiter.TrackTokenUsage(ctx, "tenant:acme", 5, 100)
	limiter.TrackTokenUsage(ctx, "tenant:acme", 5, 100)

	assert.Equal(t, int64(10), limiter.GetTokenUsage(ctx, "tenant:acme"))
}

func TestTrackTokenUsage_IncrementBeforeCheck(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	d := limiter.TrackTokenUsage(ctx, "tenant:acme", 80, 100)
	require.True(t, d.Allowed)

	// The crossing increment still lands; the caller only learns the
	// quota is exhausted after the fact.
	d = limiter.TrackTokenUsage(ctx, "tenant:acme", 80, 100)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
	assert.Equal(t, int64(160), limiter.GetTokenUsage(ctx, "tenant:acme"))
}

func TestGetTokenUsage_NoWindow(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	assert.Equal(t, int64(0), limiter.GetTokenUsage(context.Background(), "tenant:none"))
}

func TestTrackTokenUsage_DailyExpiry(t *testing.T) {
	limiter, mr := setupTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	limiter.TrackTokenUsage(ctx, "tenant:acme", 5, 100)
	mr.FastForward(25 * time.Hour)

	assert.Equal(t, int64(0), limiter.GetTokenUsage(ctx, "tenant:acme"))
}
