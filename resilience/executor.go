package resilience

import (
	"context"
	"time"
)

// Guard wraps a single call with one protection.
type Guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

var (
	_ Guard = (*RateLimiter)(nil)
	_ Guard = (*Bulkhead)(nil)
	_ Guard = (*CircuitBreaker)(nil)
	_ Guard = (*Retry)(nil)
	_ Guard = (*Timeout)(nil)
)

// Guard slots, in the order a call passes through them.
const (
	slotRate = iota
	slotBulkhead
	slotBreaker
	slotRetry
	slotTimeout
	slotCount
)

// Executor runs a call through rate limiter, bulkhead, circuit breaker,
// retry and per-attempt timeout, skipping any guard that is not set.
// A call rejected by an outer guard never reaches the inner ones.
type Executor struct {
	slots   [slotCount]Guard
	breaker *CircuitBreaker
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.set(slotRate, rl, rl == nil) }
}

func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.set(slotBulkhead, b, b == nil) }
}

func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.breaker = cb
		e.set(slotBreaker, cb, cb == nil)
	}
}

// WithRetry is ignored for a Retry that makes a single attempt.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.set(slotRetry, r, r == nil || r.config.MaxAttempts <= 1) }
}

// WithTimeout bounds every attempt, so a retried call gets a fresh
// deadline each time.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.set(slotTimeout, NewTimeout(d), false) }
}

// set stores g unless skip is true. A typed nil pointer must not land in
// a slot because the interface would then be non-nil.
func (e *Executor) set(slot int, g Guard, skip bool) {
	if skip {
		e.slots[slot] = nil
		return
	}
	e.slots[slot] = g
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.breaker
}

func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	call := op
	for i := slotCount - 1; i >= 0; i-- {
		g := e.slots[i]
		if g == nil {
			continue
		}
		next := call
		call = func(ctx context.Context) error { return g.Execute(ctx, next) }
	}
	return call(ctx)
}
