package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Canvas quota headers.
const (
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRequestCost        = "X-Request-Cost"
)

// maxStateAge is how long an observation is trusted. The Canvas bucket
// refills continuously, so old readings are replaced by a healthy default.
const maxStateAge = time.Minute

// throttleDelay is the pause applied in the warning band.
var throttleDelay = time.Second

// Prometheus metrics for quota tracking.
var (
	canvasQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_quota_remaining",
		Help: "Last observed X-Rate-Limit-Remaining value",
	})

	canvasQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_quota_blocks_total",
		Help: "Total number of requests blocked due to critical quota",
	})

	canvasQuotaThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_quota_throttles_total",
		Help: "Total number of requests throttled due to low quota",
	})
)

// Tracker monitors the Canvas request quota and gates requests.
// With a nil Redis client the state is kept in process memory.
type Tracker struct {
	redis  *redis.Client
	prefix string
	logger zerolog.Logger

	mu    sync.Mutex
	local *QuotaState
}

// NewTracker creates a quota tracker for one Canvas bucket. scope names the
// bucket in Redis keys; see QuotaScope.
func NewTracker(redisClient *redis.Client, scope string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		prefix: fmt.Sprintf("%s:%s", redisKeyPrefix, scope),
		logger: logger,
	}
}

// QuotaScope identifies the quota bucket of a token on a Canvas host.
// Canvas meters each access token separately; only a short digest of the
// token ends up in the key.
func QuotaScope(host, token string) string {
	sum := sha256.Sum256([]byte(token))
	return host + ":" + hex.EncodeToString(sum[:8])
}

func (t *Tracker) key(suffix string) string {
	return t.prefix + ":" + suffix
}

// GetState returns the current quota state.
// Missing or stale data yields a default healthy state.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil || t.local.IsStale(maxStateAge) {
			return healthyState(), nil
		}
		state := *t.local
		return &state, nil
	}

	remaining, err := t.redis.Get(ctx, t.key(RedisKeyRemaining)).Float64()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No quota state in Redis, returning default healthy state")
		return healthyState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota remaining: %w", err)
	}

	lastCost, err := t.redis.Get(ctx, t.key(RedisKeyLastCost)).Float64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get quota last cost: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, t.key(RedisKeyLastUpdate)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get quota last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &QuotaState{
		Remaining:  remaining,
		LastCost:   lastCost,
		LastUpdate: lastUpdate,
	}
	if state.IsStale(maxStateAge) {
		return healthyState(), nil
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders records the quota headers of a Canvas response.
// Responses without X-Rate-Limit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRateLimitRemaining)
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.ParseFloat(remainStr, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRateLimitRemaining, err)
	}

	var cost float64
	if costStr := headers.Get(HeaderRequestCost); costStr != "" {
		cost, err = strconv.ParseFloat(costStr, 64)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderRequestCost, err)
		}
	}

	state := &QuotaState{
		Remaining:  remaining,
		LastCost:   cost,
		LastUpdate: time.Now(),
	}
	state.UpdateHealth()

	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
	} else {
		lastUpdateJSON, err := json.Marshal(state.LastUpdate)
		if err != nil {
			return fmt.Errorf("marshal last update: %w", err)
		}

		pipe := t.redis.Pipeline()
		pipe.Set(ctx, t.key(RedisKeyRemaining), remaining, maxStateAge)
		pipe.Set(ctx, t.key(RedisKeyLastCost), cost, maxStateAge)
		pipe.Set(ctx, t.key(RedisKeyLastUpdate), lastUpdateJSON, maxStateAge)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store quota state in redis: %w", err)
		}
	}

	canvasQuotaRemaining.Set(remaining)

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Float64("quota_remaining", remaining).
			Msg("Canvas quota CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Float64("quota_remaining", remaining).
			Msg("Canvas quota WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Float64("quota_remaining", remaining).
			Float64("request_cost", cost).
			Bool("is_healthy", state.IsHealthy).
			Msg("Canvas quota state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent.
// It returns false in the critical band and sleeps in the warning band.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Float64("quota_remaining", state.Remaining).
			Msg("Canvas quota critical - blocking request")
		canvasQuotaBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Float64("quota_remaining", state.Remaining).
			Dur("delay", throttleDelay).
			Msg("Canvas quota low - throttling request")
		canvasQuotaThrottlesTotal.Inc()

		timer := time.NewTimer(throttleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
