package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds each attempt with a context deadline.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout guard. Non-positive durations default to 10s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 10 * time.Second
	}
	return &Timeout{d: d}
}

// Execute runs op with a derived deadline. The caller gets control back as
// soon as the deadline passes, even if op has not yet observed it.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Join(ErrTimeout, err)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Duration returns the per-attempt deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}
