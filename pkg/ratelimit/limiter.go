package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultInterval is the minimum spacing between two outbound Canvas requests.
const DefaultInterval = 100 * time.Millisecond

var canvasRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "canvas_rate_limit_wait_seconds",
	Help:    "Time callers spent waiting for an admission slot",
	Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
})

// Stats is a snapshot of the limiter's admission history.
type Stats struct {
	RequestCount    int64     `json:"request_count"`
	LastRequestTime time.Time `json:"last_request_time"`
}

// Limiter enforces a minimum interval between admitted requests.
//
// Acquire reserves the earliest free slot under the lock and then waits for it
// outside the lock, so concurrent callers queue up one interval apart.
type Limiter struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	next     time.Time // latest reserved slot, admitted or not
	reserved bool
	last     time.Time
	count    int64
}

// NewLimiter creates a limiter. A non-positive interval falls back to DefaultInterval.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{
		interval: interval,
		now:      time.Now,
	}
}

// Interval returns the configured minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the caller's admission slot is reached.
// The slot is consumed even when ctx is cancelled while waiting, but only
// admitted callers show up in Stats.
func (l *Limiter) Acquire(ctx context.Context) error {
	slot := l.reserve()

	wait := slot.Sub(l.now())
	canvasRateLimitWaitSeconds.Observe(max(wait, 0).Seconds())
	if wait <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.admit(slot)
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		l.admit(slot)
		return nil
	}
}

// reserve claims the earliest free slot and returns its time.
func (l *Limiter) reserve() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.now()
	if l.reserved {
		if earliest := l.next.Add(l.interval); slot.Before(earliest) {
			slot = earliest
		}
	}
	l.next = slot
	l.reserved = true
	return slot
}

// admit counts a caller that reached its slot.
func (l *Limiter) admit(slot time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if slot.After(l.last) {
		l.last = slot
	}
}

// Stats returns the number of admissions and the time of the latest one.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		RequestCount:    l.count,
		LastRequestTime: l.last,
	}
}
