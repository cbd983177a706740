package geosearch

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
	"github.com/jonwraymond/landmarks/resilience"
)

// Guards configures the resilience wrapping of every upstream call.
type Guards struct {
	MaxConcurrent   int
	RatePerSecond   float64
	Burst           int
	RateMaxWait     time.Duration
	BreakerFailures int
	BreakerReset    time.Duration
	Timeout         time.Duration
	MaxAttempts     int
}

// DefaultGuards returns the production defaults: 8 concurrent calls, 20
// rps with burst 10, breaker at 5 consecutive failures with a 30s reset,
// 10s per call, no retries.
func DefaultGuards() Guards {
	return Guards{
		MaxConcurrent:   8,
		RatePerSecond:   20,
		Burst:           10,
		RateMaxWait:     2 * time.Second,
		BreakerFailures: 5,
		BreakerReset:    30 * time.Second,
		Timeout:         10 * time.Second,
		MaxAttempts:     1,
	}
}

// Executor builds the executor shared by every call of one Client.
func (g Guards) Executor(logger observe.Logger) *resilience.Executor {
	if logger == nil {
		logger = observe.NopLogger()
	}
	logger = logger.WithComponent("geosearch")

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "geosearch",
		MaxFailures:  g.BreakerFailures,
		ResetTimeout: g.BreakerReset,
		IsFailure:    countsAgainstBreaker,
		OnStateChange: func(from, to resilience.State) {
			logger.Warn(context.Background(), "circuit state changed",
				observe.F("from", from.String()), observe.F("to", to.String()))
		},
	})

	return resilience.NewExecutor(
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:    g.RatePerSecond,
			Burst:   g.Burst,
			MaxWait: g.RateMaxWait,
		})),
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: g.MaxConcurrent,
		})),
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: g.MaxAttempts,
			Jitter:      true,
			RetryIf:     retryable,
		})),
		resilience.WithTimeout(g.Timeout),
	)
}

// Only an unreachable upstream trips the breaker; a malformed reply proves
// the service is up.
func countsAgainstBreaker(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return landmark.KindOf(err) != landmark.UpstreamMalformed
}

func retryable(err error) bool {
	if err == nil || resilience.IsRejection(err) || errors.Is(err, context.Canceled) {
		return false
	}
	return landmark.KindOf(err) != landmark.UpstreamMalformed
}
