package ratelimit

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, withRedis bool) (*Tracker, *miniredis.Miniredis) {
	t.Helper()
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	if !withRedis {
		return NewTracker(nil, "canvas.test", logger), nil
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTracker(client, "canvas.test", logger), mr
}

func quotaHeaders(remaining, cost string) http.Header {
	h := http.Header{}
	if remaining != "" {
		h.Set(HeaderRateLimitRemaining, remaining)
	}
	if cost != "" {
		h.Set(HeaderRequestCost, cost)
	}
	return h
}

func TestTracker_DefaultStateIsHealthy(t *testing.T) {
	for _, withRedis := range []bool{false, true} {
		tracker, _ := newTestTracker(t, withRedis)
		state, err := tracker.GetState(context.Background())
		require.NoError(t, err)
		assert.True(t, state.IsHealthy)
		assert.Equal(t, float64(defaultQuotaHealthy), state.Remaining)
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tests := []struct {
		name          string
		remaining     string
		cost          string
		wantErr       bool
		wantRemaining float64
		wantHealthy   bool
	}{
		{name: "healthy", remaining: "699.5", cost: "0.5", wantRemaining: 699.5, wantHealthy: true},
		{name: "warning", remaining: "55", cost: "12.25", wantRemaining: 55},
		{name: "critical", remaining: "3.1", wantRemaining: 3.1},
		{name: "invalid remaining", remaining: "lots", wantErr: true},
		{name: "invalid cost", remaining: "500", cost: "cheap", wantErr: true},
	}

	for _, withRedis := range []bool{false, true} {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tracker, _ := newTestTracker(t, withRedis)
				ctx := context.Background()

				err := tracker.UpdateFromHeaders(ctx, quotaHeaders(tt.remaining, tt.cost))
				if tt.wantErr {
					assert.Error(t, err)
					return
				}
				require.NoError(t, err)

				state, err := tracker.GetState(ctx)
				require.NoError(t, err)
				assert.InDelta(t, tt.wantRemaining, state.Remaining, 0.001)
				assert.Equal(t, tt.wantHealthy, state.IsHealthy)
			})
		}
	}
}

func TestTracker_MissingHeaderIsIgnored(t *testing.T) {
	tracker, mr := newTestTracker(t, true)
	require.NoError(t, tracker.UpdateFromHeaders(context.Background(), http.Header{}))
	assert.False(t, mr.Exists("canvas:quota:canvas.test:remaining"))
}

func TestTracker_RedisKeysArePrefixedByScope(t *testing.T) {
	tracker, mr := newTestTracker(t, true)
	require.NoError(t, tracker.UpdateFromHeaders(context.Background(), quotaHeaders("420", "1")))

	val, err := mr.Get("canvas:quota:canvas.test:remaining")
	require.NoError(t, err)
	assert.Equal(t, "420", val)
	assert.True(t, mr.TTL("canvas:quota:canvas.test:remaining") > 0)
}

func TestQuotaScope(t *testing.T) {
	a := QuotaScope("school.instructure.com", "token-a")
	b := QuotaScope("school.instructure.com", "token-b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, QuotaScope("school.instructure.com", "token-a"))
	assert.True(t, strings.HasPrefix(a, "school.instructure.com:"))
	assert.Len(t, strings.TrimPrefix(a, "school.instructure.com:"), 16)
	assert.NotContains(t, a, "token-a")
}

func TestTracker_TokensOnOneHostDoNotShareQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	exhausted := NewTracker(client, QuotaScope("canvas.test", "token-a"), logger)
	fresh := NewTracker(client, QuotaScope("canvas.test", "token-b"), logger)

	require.NoError(t, exhausted.UpdateFromHeaders(ctx, quotaHeaders("5", "1")))

	allowed, err := exhausted.ShouldAllowRequest(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = fresh.ShouldAllowRequest(ctx)
	require.NoError(t, err)
	assert.True(t, allowed, "another token's bucket must not block this one")

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "token-a")
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	original := throttleDelay
	throttleDelay = 10 * time.Millisecond
	t.Cleanup(func() { throttleDelay = original })

	tests := []struct {
		name      string
		remaining string
		want      bool
	}{
		{name: "healthy", remaining: "650", want: true},
		{name: "throttled but allowed", remaining: "40", want: true},
		{name: "blocked", remaining: "2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _ := newTestTracker(t, true)
			ctx := context.Background()
			require.NoError(t, tracker.UpdateFromHeaders(ctx, quotaHeaders(tt.remaining, "")))

			allowed, err := tracker.ShouldAllowRequest(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestTracker_ThrottleHonoursCancellation(t *testing.T) {
	original := throttleDelay
	throttleDelay = time.Hour
	t.Cleanup(func() { throttleDelay = original })

	tracker, _ := newTestTracker(t, false)
	require.NoError(t, tracker.UpdateFromHeaders(context.Background(), quotaHeaders("50", "")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	allowed, err := tracker.ShouldAllowRequest(ctx)
	assert.False(t, allowed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTracker_StaleLocalStateResetsToHealthy(t *testing.T) {
	tracker, _ := newTestTracker(t, false)
	tracker.local = &QuotaState{Remaining: 1, LastUpdate: time.Now().Add(-2 * maxStateAge)}

	state, err := tracker.GetState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsHealthy)
}
