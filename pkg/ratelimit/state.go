// Package ratelimit paces outbound Canvas requests and tracks the upstream
// request quota.
//
// Limiter spaces admissions by a fixed interval. Tracker follows Canvas's
// leaky-bucket headers (X-Rate-Limit-Remaining, X-Request-Cost) so the client
// can back off before the server starts answering with 403/429.
package ratelimit

import (
	"time"
)

// Redis key suffixes for quota state storage. Keys are prefixed with the
// quota scope (host and token digest) so several users can share one Redis.
const (
	RedisKeyRemaining   = "remaining"
	RedisKeyLastCost    = "last_cost"
	RedisKeyLastUpdate  = "last_update"
	redisKeyPrefix      = "canvas:quota"
	defaultQuotaHealthy = 700
)

// Thresholds for quota decisions, in Canvas quota units.
const (
	// QuotaThresholdCritical blocks requests when the remaining quota falls below this value.
	QuotaThresholdCritical = 10

	// QuotaThresholdWarning throttles requests when the remaining quota falls below this value.
	QuotaThresholdWarning = 100

	// QuotaThresholdHealthy indicates normal operation.
	QuotaThresholdHealthy = 300
)

// QuotaState is the last observed Canvas request quota.
type QuotaState struct {
	// Remaining is X-Rate-Limit-Remaining from the latest response.
	Remaining float64 `json:"remaining"`

	// LastCost is X-Request-Cost from the latest response.
	LastCost float64 `json:"last_cost"`

	// LastUpdate is when the headers were observed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= QuotaThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *QuotaState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should not be sent at all.
func (s *QuotaState) NeedsCriticalBlock() bool {
	return s.Remaining < QuotaThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *QuotaState) NeedsThrottling() bool {
	return s.Remaining < QuotaThresholdWarning && !s.NeedsCriticalBlock()
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *QuotaState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= QuotaThresholdHealthy
}

func healthyState() *QuotaState {
	return &QuotaState{
		Remaining:  defaultQuotaHealthy,
		LastUpdate: time.Now(),
		IsHealthy:  true,
	}
}
