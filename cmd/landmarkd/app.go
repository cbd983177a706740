package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/landmarks/aggregate"
	"github.com/jonwraymond/landmarks/cache"
	"github.com/jonwraymond/landmarks/config"
	"github.com/jonwraymond/landmarks/geosearch"
	"github.com/jonwraymond/landmarks/health"
	"github.com/jonwraymond/landmarks/observe"
)

// app holds the wired components of one process.
type app struct {
	cfg      config.Config
	obs      observe.Observer
	mw       *observe.Middleware
	logger   observe.Logger
	store    *cache.Store
	client   *geosearch.Client
	pipeline *aggregate.Pipeline
	sweeper  *cache.Sweeper
}

// newStoreApp wires telemetry and the cache only, for maintenance commands.
func newStoreApp(ctx context.Context, cfg config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe(version))
	if err != nil {
		return nil, fmt.Errorf("building observer: %w", err)
	}
	a := &app{cfg: cfg, obs: obs, logger: obs.Logger()}

	a.mw, err = observe.MiddlewareFromObserver(obs)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("building metrics: %w", err)
	}

	backend, err := cfg.OpenBackend(ctx)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Cache.Backend, err)
	}
	a.store, err = cache.NewStore(backend, cfg.Policy(), cache.WithMiddleware(a.mw))
	if err != nil {
		_ = backend.Close()
		a.close(ctx)
		return nil, fmt.Errorf("building store: %w", err)
	}
	a.sweeper = cache.NewSweeper(a.store, cfg.Cache.SweepInterval, a.logger)
	return a, nil
}

// newApp wires every component.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a, err := newStoreApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.client = geosearch.New(cfg.Gateway(),
		geosearch.WithExecutor(cfg.Guards().Executor(a.logger)),
		geosearch.WithMiddleware(a.mw),
	)
	a.pipeline = aggregate.New(a.store, a.client,
		aggregate.WithWorkers(cfg.Upstream.Workers),
		aggregate.WithMiddleware(a.mw),
	)
	return a, nil
}

func (a *app) health() *health.Aggregator {
	agg := health.NewAggregator()
	agg.Register(health.NewPingChecker("persistence", a.store))
	if a.client != nil {
		if cb := a.client.Breaker(); cb != nil {
			agg.Register(health.NewBreakerChecker(cb))
		}
	}
	return agg
}

// close releases the store and flushes telemetry. ctx bounds the flush.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}
	if a.obs != nil {
		if err := a.obs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
