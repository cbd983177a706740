package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy picks how the delay grows between attempts.
type BackoffStrategy int

const (
	BackoffExponential BackoffStrategy = iota
	BackoffConstant
)

// RetryConfig configures a Retry. Zero values take the defaults noted.
type RetryConfig struct {
	MaxAttempts  int           // including the first; default 1
	InitialDelay time.Duration // default 200ms
	MaxDelay     time.Duration // default 5s
	Multiplier   float64       // exponential factor; default 2
	Strategy     BackoffStrategy

	// Jitter stretches each delay by up to a quarter.
	Jitter bool

	// RetryIf defaults to any error that is not a guard rejection.
	RetryIf func(err error) bool

	// OnRetry runs before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.RetryIf == nil {
		c.RetryIf = func(err error) bool { return !IsRejection(err) }
	}
	return c
}

// Retry re-runs a failed call with backoff.
type Retry struct {
	config RetryConfig
}

func NewRetry(config RetryConfig) *Retry {
	return &Retry{config: config.withDefaults()}
}

// Execute stops at the first success, the first error RetryIf refuses, or
// the last attempt. The final error is returned as op produced it.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || attempt >= r.config.MaxAttempts || !r.config.RetryIf(err) {
			return err
		}

		wait := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// delay is the pause after the given failed attempt, counting from 1.
func (r *Retry) delay(attempt int) time.Duration {
	d := r.config.InitialDelay
	if r.config.Strategy == BackoffExponential {
		for range attempt - 1 {
			d = time.Duration(float64(d) * r.config.Multiplier)
			if d >= r.config.MaxDelay {
				break
			}
		}
	}
	d = min(d, r.config.MaxDelay)
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- timing variance, not security.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
