package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/landmarks/observe"
)

// Sweeper periodically removes stale persistent records.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   observe.Logger
}

// NewSweeper creates a sweeper. A non-positive interval uses the store
// policy's SweepInterval.
func NewSweeper(store *Store, interval time.Duration, logger observe.Logger) *Sweeper {
	if interval <= 0 {
		interval = store.Policy().SweepInterval
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Sweeper{store: store, interval: interval, logger: logger.WithComponent("sweeper")}
}

// Run sweeps once per interval until ctx is done. Errors are logged and
// the next tick proceeds normally.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sweeper started", observe.F("interval", s.interval.String()))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.WithoutCancel(ctx), "sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep at the store clock's current time.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, s.store.Now())
	if err != nil {
		s.logger.Error(ctx, "sweep failed", observe.ErrField(err), observe.F("removed", removed))
		return removed, err
	}
	s.logger.Info(ctx, "sweep completed", observe.F("removed", removed))
	return removed, nil
}
