package config

import (
	"context"
	"fmt"

	"github.com/jonwraymond/landmarks/auth"
	"github.com/jonwraymond/landmarks/cache"
	"github.com/jonwraymond/landmarks/geosearch"
	"github.com/jonwraymond/landmarks/observe"
)

// ServiceName identifies the service in telemetry.
const ServiceName = "landmarkd"

// Observe returns the telemetry configuration.
func (c Config) Observe(version string) observe.Config {
	return observe.Config{
		ServiceName: ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.Tracing != "none",
			Exporter:  c.Telemetry.Tracing,
			SamplePct: c.Telemetry.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.Metrics != "none",
			Exporter: c.Telemetry.Metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Telemetry.LogLevel,
		},
	}
}

// Policy returns the cache retention policy.
func (c Config) Policy() cache.Policy {
	return cache.Policy{
		TTL:           c.Cache.TTL,
		MemoCapacity:  c.Cache.MemoCapacity,
		SweepInterval: c.Cache.SweepInterval,
	}
}

// OpenBackend opens the configured persistent tier.
func (c Config) OpenBackend(ctx context.Context) (cache.Backend, error) {
	switch c.Cache.Backend {
	case "sqlite":
		b, err := cache.OpenSQLite(c.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "redis":
		b, err := cache.OpenRedis(ctx, c.Cache.RedisURL, c.Cache.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory":
		return cache.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}
}

// Gateway returns the MediaWiki client configuration.
func (c Config) Gateway() geosearch.Config {
	return geosearch.Config{
		BaseURL:   c.Upstream.BaseURL,
		UserAgent: c.Upstream.UserAgent,
		Radius:    c.Upstream.Radius,
		Limit:     c.Upstream.Limit,
	}
}

// Guards returns the upstream resilience settings.
func (c Config) Guards() geosearch.Guards {
	u := c.Upstream
	return geosearch.Guards{
		MaxConcurrent:   u.MaxConcurrent,
		RatePerSecond:   u.RatePerSecond,
		Burst:           u.Burst,
		RateMaxWait:     u.RateMaxWait,
		BreakerFailures: u.BreakerFailures,
		BreakerReset:    u.BreakerReset,
		Timeout:         u.Timeout,
		MaxAttempts:     u.MaxAttempts,
	}
}

// Authenticator returns the maintenance authenticator, or nil when no
// credential is configured.
func (c Config) Authenticator() auth.Authenticator {
	a := c.Admin
	if !a.AuthEnabled() {
		return nil
	}
	var auths []auth.Authenticator
	if a.APIKey != "" {
		auths = append(auths, auth.NewAPIKeyAuthenticator("", auth.APIKey{
			Principal: "admin-key",
			Key:       a.APIKey,
			Roles:     roles(a.RequiredRole),
		}))
	}
	if a.JWTSecret != "" {
		auths = append(auths, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(a.JWTSecret),
			Issuer:   a.JWTIssuer,
			Audience: a.JWTAudience,
		}))
	}
	return auth.NewCompositeAuthenticator(auths...)
}

// The static key is trusted with whatever role the routes require.
func roles(required string) []string {
	if required == "" {
		return nil
	}
	return []string{required}
}
