package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// ErrRetryExhausted is returned when all retry attempts failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Prometheus metrics for retry operations.
var (
	canvasRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	canvasRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	canvasRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryPolicy is an opt-in, caller-side retry strategy. The client itself
// never retries; tools wrap calls whose failure is worth repeating.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first one.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// Multiplier for exponential backoff.
	Multiplier float64
}

// DefaultRetryPolicy returns a policy with the given number of attempts.
// attempts <= 1 disables retries.
func DefaultRetryPolicy(attempts int) RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// Retryable reports whether an error is worth another attempt.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindServerError, KindTransport:
		return true
	default:
		return false
	}
}

// backoffFor scales the base backoff per kind; throttling waits longer.
func (p RetryPolicy) backoffFor(kind Kind, base time.Duration) time.Duration {
	if kind == KindRateLimited {
		base *= 5
	}
	if p.MaxBackoff > 0 && base > p.MaxBackoff {
		base = p.MaxBackoff
	}
	return base
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
// Backoff waits respect context cancellation and carry ±20% jitter.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := p.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !Retryable(err) {
			return err
		}
		if attempt >= attempts {
			break
		}

		kind := string(KindOf(err))
		canvasRetriesTotal.WithLabelValues(kind).Inc()

		wait := p.backoffFor(KindOf(err), backoff)
		jitter := time.Duration(float64(wait) * (0.8 + rand.Float64()*0.4))
		canvasRetryBackoffSeconds.WithLabelValues(kind).Observe(jitter.Seconds())

		log.Debug().
			Str("kind", kind).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn().
				Str("kind", kind).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), lastErr))
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * p.Multiplier)
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}

	if attempts == 1 {
		return lastErr
	}

	canvasRetryExhaustedTotal.WithLabelValues(string(KindOf(lastErr))).Inc()
	log.Warn().
		Str("kind", string(KindOf(lastErr))).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
