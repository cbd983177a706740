package aggregate

import (
	"context"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/landmarks/cache"
	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
	"github.com/jonwraymond/landmarks/resilience"
)

// DefaultWorkers bounds concurrent detail fetches per resolution.
const DefaultWorkers = 5

// Gateway is the upstream the pipeline fetches from.
type Gateway interface {
	FetchList(ctx context.Context, lat, lon float64, search string) ([]landmark.RawPlace, error)
	FetchDetail(ctx context.Context, pageID int64) (string, error)
}

// Cache is the store the pipeline reads through and writes back to.
type Cache interface {
	Get(ctx context.Context, key string) ([]landmark.Landmark, bool, error)
	Set(ctx context.Context, key string, landmarks []landmark.Landmark) error
}

// Pipeline resolves RequestParams to landmarks.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: a resolution whose ctx ends returns at once. In-flight
//     detail fetches are abandoned and nothing is written to the cache.
//   - Errors: upstream failures are never cached, nor are results thinned
//     by a local guard rejection.
type Pipeline struct {
	cache   Cache
	gateway Gateway
	workers int
	mw      *observe.Middleware
	logger  observe.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the per-resolution detail fan-out.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMiddleware attaches telemetry.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(p *Pipeline) {
		if mw != nil {
			p.mw = mw
		}
	}
}

// New creates a Pipeline.
func New(c Cache, g Gateway, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:   c,
		gateway: g,
		workers: DefaultWorkers,
		mw:      observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.mw.Logger().WithComponent("aggregate")
	return p
}

// Resolve is the degraded form of ResolveStrict: any failure is logged and
// yields an empty list.
func (p *Pipeline) Resolve(ctx context.Context, params landmark.RequestParams) []landmark.Landmark {
	out, err := p.ResolveStrict(ctx, params)
	if err != nil {
		p.logger.Warn(ctx, "resolve degraded to empty result",
			observe.ErrField(err), observe.F("kind", landmark.KindOf(err).String()))
		return []landmark.Landmark{}
	}
	return out
}

// ResolveStrict returns the landmarks for params, or the upstream failure
// or context error that prevented resolution.
func (p *Pipeline) ResolveStrict(ctx context.Context, params landmark.RequestParams) ([]landmark.Landmark, error) {
	var out []landmark.Landmark
	op := observe.Operation{
		Component: "aggregate",
		Name:      "resolve",
		Attrs: []attribute.KeyValue{
			attribute.Bool("landmarks.specific", params.Specific),
			attribute.Bool("landmarks.box_mode", params.BoxMode()),
		},
	}
	err := p.mw.Run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = p.resolve(ctx, params)
		return err
	})
	return out, err
}

func (p *Pipeline) resolve(ctx context.Context, params landmark.RequestParams) ([]landmark.Landmark, error) {
	key, err := cache.DeriveKey(params)
	if err != nil {
		return nil, err
	}

	cached, found, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn(ctx, "cache read failed, treating as miss", observe.ErrField(err), observe.F("key", key))
	}
	if found {
		return cached, nil
	}

	lat, lon := params.Center()
	search := strings.TrimSpace(params.Search)

	places, err := p.gateway.FetchList(ctx, lat, lon, search)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	candidates := p.filter(params, places)
	out, rejected, err := p.enrichAll(ctx, params, candidates)
	if err != nil {
		return nil, err
	}

	// A place refused by a local guard says nothing about the upstream, so
	// the thinned answer is served but not kept for the whole TTL.
	if rejected {
		p.logger.Info(ctx, "details rejected by local guards, not caching", observe.F("key", key))
		return out, nil
	}
	if err := p.cache.Set(ctx, key, out); err != nil {
		p.logger.Warn(ctx, "cache write failed", observe.ErrField(err), observe.F("key", key))
	}
	return out, nil
}

// filter drops places before any detail fetch: non-matching titles in
// specific mode and places outside the tolerance-expanded box in box mode.
func (p *Pipeline) filter(params landmark.RequestParams, places []landmark.RawPlace) []landmark.RawPlace {
	boxMode := params.BoxMode()
	box := params.Box().Expand(landmark.BoxTolerance)

	kept := make([]landmark.RawPlace, 0, len(places))
	for _, place := range places {
		if params.Specific && !params.MatchesTitle(place.Title) {
			continue
		}
		if boxMode && !box.Contains(place.Lat, place.Lon) {
			continue
		}
		kept = append(kept, place)
	}
	return kept
}

// enrichAll fetches details with bounded concurrency and keeps list order.
// It returns as soon as ctx is done without waiting for the workers, and
// reports whether any place was dropped by a guard rejection.
func (p *Pipeline) enrichAll(ctx context.Context, params landmark.RequestParams, places []landmark.RawPlace) ([]landmark.Landmark, bool, error) {
	slots := make([]*landmark.Landmark, len(places))
	var rejected atomic.Bool
	done := make(chan struct{})

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(p.workers)
		for i, place := range places {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				lm, err := p.enrich(ctx, params, place)
				if resilience.IsRejection(err) {
					rejected.Store(true)
				}
				slots[i] = lm
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-done:
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	out := make([]landmark.Landmark, 0, len(places))
	for _, lm := range slots {
		if lm != nil {
			out = append(out, *lm)
		}
	}
	return out, rejected.Load(), nil
}

// enrich returns a nil landmark when the place is dropped, with the fetch
// error if that was the cause.
func (p *Pipeline) enrich(ctx context.Context, params landmark.RequestParams, place landmark.RawPlace) (*landmark.Landmark, error) {
	extract, err := p.gateway.FetchDetail(ctx, place.PageID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn(ctx, "detail fetch failed, dropping place",
				observe.ErrField(err), observe.F("pageid", place.PageID), observe.F("title", place.Title))
		}
		return nil, err
	}

	category := landmark.Classify(extract)
	if !params.AllowsCategory(category) {
		return nil, nil
	}

	return &landmark.Landmark{
		Title:    place.Title,
		Lat:      place.Lat,
		Lon:      place.Lon,
		PageID:   place.PageID,
		Summary:  landmark.Truncate(extract),
		Category: category,
	}, nil
}
