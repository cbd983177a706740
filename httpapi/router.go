package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jonwraymond/landmarks/auth"
	"github.com/jonwraymond/landmarks/health"
	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
)

// Resolver answers landmark lookups.
type Resolver interface {
	Resolve(ctx context.Context, params landmark.RequestParams) []landmark.Landmark
}

// Clearer empties the cache.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Sweeper runs one eviction sweep.
type Sweeper interface {
	SweepOnce(ctx context.Context) (int, error)
}

// Config wires the router's collaborators. Resolver is required; nil
// Cache, Sweeper, Health or Metrics leave their routes unmounted.
type Config struct {
	Resolver Resolver
	Cache    Clearer
	Sweeper  Sweeper
	Health   *health.Aggregator

	// Metrics serves /metrics, typically promhttp.Handler().
	Metrics http.Handler

	// Auth guards the maintenance routes. Nil leaves them open.
	Auth         auth.Authenticator
	RequiredRole string

	// RequestTimeout bounds each query. Zero means no extra bound.
	RequestTimeout time.Duration

	// CORSOrigins lists the browser origins allowed on query routes.
	// Empty disables CORS headers.
	CORSOrigins []string

	Logger observe.Logger
}

type api struct {
	cfg    Config
	logger observe.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	a := &api{cfg: cfg, logger: logger.WithComponent("http")}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestContext)
	r.Use(AccessLog(a.logger))
	r.Use(chimiddleware.Recoverer)

	if cfg.Health != nil {
		health.RegisterHandlers(r, cfg.Health)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if len(cfg.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				ExposedHeaders: []string{"X-Request-Id"},
				MaxAge:         300,
			}))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		}
		r.Get("/landmarks", a.landmarks)
		r.Get("/get_landmarks", a.landmarks)
	})

	if cfg.Cache == nil && cfg.Sweeper == nil {
		return r
	}
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth, auth.MiddlewareConfig{
			RequiredRole: cfg.RequiredRole,
			Logger:       logger,
		}))
		if cfg.Cache != nil {
			r.Post("/cache/clear", a.clear)
		}
		if cfg.Sweeper != nil {
			r.Post("/cache/sweep", a.sweep)
		}
	})

	return r
}

func (a *api) landmarks(w http.ResponseWriter, r *http.Request) {
	results := a.cfg.Resolver.Resolve(r.Context(), ParseParams(r.URL.Query()))
	if results == nil {
		results = []landmark.Landmark{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *api) clear(w http.ResponseWriter, r *http.Request) {
	if err := a.cfg.Cache.Clear(r.Context()); err != nil {
		a.logger.Error(r.Context(), "cache clear failed", observe.ErrField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache clear failed"})
		return
	}
	a.logger.Info(r.Context(), "cache cleared", principal(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type sweepResponse struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}

func (a *api) sweep(w http.ResponseWriter, r *http.Request) {
	removed, err := a.cfg.Sweeper.SweepOnce(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache sweep failed"})
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{Status: "swept", Removed: removed})
}

func principal(r *http.Request) observe.Field {
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		return observe.F("principal", id.Principal)
	}
	return observe.F("principal", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
