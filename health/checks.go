package health

import (
	"context"

	"github.com/jonwraymond/landmarks/resilience"
)

// Pinger is anything that can prove it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports Unhealthy when Ping fails.
type PingChecker struct {
	name   string
	target Pinger
}

// NewPingChecker creates a checker over target.
func NewPingChecker(name string, target Pinger) *PingChecker {
	return &PingChecker{name: name, target: target}
}

// Name returns the name of this checker.
func (c *PingChecker) Name() string {
	return c.name
}

// Check pings the target.
func (c *PingChecker) Check(ctx context.Context) Result {
	if err := c.target.Ping(ctx); err != nil {
		return Unhealthy("ping failed", err)
	}
	return Healthy("reachable")
}

// BreakerChecker reports the state of an upstream circuit breaker.
type BreakerChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker over breaker.
func NewBreakerChecker(breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{breaker: breaker}
}

// Name returns the breaker name.
func (c *BreakerChecker) Name() string {
	return c.breaker.Name()
}

// Check maps closed to Healthy and open or half-open to Degraded.
func (c *BreakerChecker) Check(context.Context) Result {
	m := c.breaker.Metrics()

	var r Result
	switch m.State {
	case resilience.StateClosed:
		r = Healthy("circuit closed")
	case resilience.StateHalfOpen:
		r = Degraded("circuit probing", nil)
	default:
		r = Degraded("circuit open", ErrCircuitOpen)
	}
	return r.With("state", m.State.String()).With("consecutive_failures", m.ConsecutiveFailures)
}
