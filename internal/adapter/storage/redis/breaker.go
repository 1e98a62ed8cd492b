package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upi-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrBreakerOpen is returned while the breaker short-circuits calls.
var ErrBreakerOpen = errors.New("rate limit store unavailable: circuit open")

// BreakerConfig tunes the circuit breaker around a rate limit store.
type BreakerConfig struct {
	MaxRequests         uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state counter reset period
	Timeout             time.Duration // open-state duration before probing
	ConsecutiveFailures uint32        // failures that trip the breaker
}

// DefaultBreakerConfig returns the settings used by the API server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerRateLimitStore guards a ports.RateLimitStore with a circuit breaker.
type BreakerRateLimitStore struct {
	next    ports.RateLimitStore
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerRateLimitStore wraps next with a circuit breaker named name.
func NewBreakerRateLimitStore(next ports.RateLimitStore, name string, cfg BreakerConfig, log zerolog.Logger) *BreakerRateLimitStore {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &BreakerRateLimitStore{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Allow delegates to the wrapped store unless the breaker is open.
func (s *BreakerRateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.next.Allow(ctx, key, limit, window)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
		}
		return nil, err
	}
	return out.(*ports.RateLimitResult), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (s *BreakerRateLimitStore) State() string {
	return s.breaker.State().String()
}
