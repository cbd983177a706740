package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/landmarks/secret"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Admin     AdminConfig     `yaml:"admin"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`

	// RequestTimeout bounds a query handler. It stays below WriteTimeout so
	// a timed-out lookup still gets its reply written.
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0,ltfield=WriteTimeout"`

	ShutdownGrace time.Duration `yaml:"shutdown_grace" validate:"gt=0"`
	CORSOrigins   []string      `yaml:"cors_origins"`
}

// CacheConfig selects and tunes the cache tiers.
type CacheConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=sqlite redis memory"`
	SQLitePath    string        `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	RedisURL      string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
	MemoCapacity  int           `yaml:"memo_capacity" validate:"gte=1"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
}

// UpstreamConfig configures the MediaWiki gateway and its guards.
type UpstreamConfig struct {
	BaseURL         string        `yaml:"base_url" validate:"required,url"`
	UserAgent       string        `yaml:"user_agent" validate:"required"`
	Radius          int           `yaml:"radius" validate:"gte=10,lte=10000"`
	Limit           int           `yaml:"limit" validate:"gte=1,lte=500"`
	Workers         int           `yaml:"workers" validate:"gte=1"`
	MaxConcurrent   int           `yaml:"max_concurrent" validate:"gte=1"`
	RatePerSecond   float64       `yaml:"rate_per_second" validate:"gt=0"`
	Burst           int           `yaml:"burst" validate:"gte=1"`
	RateMaxWait     time.Duration `yaml:"rate_max_wait" validate:"gte=0"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	BreakerFailures int           `yaml:"breaker_failures" validate:"gte=1"`
	BreakerReset    time.Duration `yaml:"breaker_reset" validate:"gt=0"`
	MaxAttempts     int           `yaml:"max_attempts" validate:"gte=1,lte=5"`
}

// AdminConfig configures maintenance route authentication. With neither
// credential set the maintenance routes are open.
type AdminConfig struct {
	APIKey       string `yaml:"api_key"`
	JWTSecret    string `yaml:"jwt_secret" validate:"omitempty,min=32"`
	JWTIssuer    string `yaml:"jwt_issuer"`
	JWTAudience  string `yaml:"jwt_audience"`
	RequiredRole string `yaml:"required_role"`
}

// TelemetryConfig configures logging, tracing and metrics.
type TelemetryConfig struct {
	LogLevel  string  `yaml:"log_level" validate:"oneof=debug info warn error"`
	Tracing   string  `yaml:"tracing" validate:"oneof=otlp stdout none"`
	SamplePct float64 `yaml:"sample_pct" validate:"gte=0,lte=1"`
	Metrics   string  `yaml:"metrics" validate:"oneof=otlp prometheus stdout none"`
}

// AuthEnabled reports whether any maintenance credential is configured.
func (a AdminConfig) AuthEnabled() bool {
	return a.APIKey != "" || a.JWTSecret != ""
}

// DefaultPath returns $XDG_CONFIG_HOME/landmarks/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "landmarks", "config.yaml")
}

// DefaultSQLitePath returns $XDG_CACHE_HOME/landmarks/cache.db.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.CacheHome, "landmarks", "cache.db")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 50 * time.Second,
			ShutdownGrace:  10 * time.Second,
			CORSOrigins:    []string{"*"},
		},
		Cache: CacheConfig{
			Backend:       "sqlite",
			SQLitePath:    DefaultSQLitePath(),
			RedisPrefix:   "lmcache:",
			TTL:           time.Hour,
			MemoCapacity:  256,
			SweepInterval: time.Hour,
		},
		Upstream: UpstreamConfig{
			BaseURL:         "https://en.wikipedia.org/w/api.php",
			UserAgent:       "landmarkd/1.0 (https://github.com/jonwraymond/landmarks)",
			Radius:          10000,
			Limit:           50,
			Workers:         5,
			MaxConcurrent:   8,
			RatePerSecond:   20,
			Burst:           10,
			RateMaxWait:     2 * time.Second,
			Timeout:         10 * time.Second,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
			MaxAttempts:     1,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			Tracing:   "none",
			SamplePct: 1,
			Metrics:   "prometheus",
		},
	}
}

// Options controls Load.
type Options struct {
	// Path is the YAML file. Empty means DefaultPath, where a missing
	// file is not an error.
	Path string

	// DotEnv is the .env file to load first. Empty means ".env".
	DotEnv string

	// Resolver resolves credential fields. Nil means
	// secret.DefaultResolver relative to the config file directory.
	Resolver *secret.Resolver
}

// Load builds the configuration from defaults, file and environment.
func Load(ctx context.Context, opts Options) (Config, error) {
	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", dotenv, err)
	}

	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = secret.DefaultResolver(filepath.Dir(path))
	}
	if err := resolver.ResolveAll(ctx,
		&cfg.Admin.APIKey,
		&cfg.Admin.JWTSecret,
		&cfg.Cache.RedisURL,
	); err != nil {
		return Config{}, fmt.Errorf("config: resolve secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q", ErrInvalid, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Admin.RequiredRole != "" && !c.Admin.AuthEnabled() {
		return fmt.Errorf("%w: admin.required_role needs admin.api_key or admin.jwt_secret", ErrInvalid)
	}
	return nil
}

type envBinding struct {
	name string
	set  func(*Config, string) error
}

var envBindings = []envBinding{
	{"LANDMARKS_ADDR", func(c *Config, v string) error { c.Server.Addr = v; return nil }},
	{"LANDMARKS_REQUEST_TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Server.RequestTimeout, v) }},
	{"LANDMARKS_CACHE_BACKEND", func(c *Config, v string) error { c.Cache.Backend = v; return nil }},
	{"LANDMARKS_SQLITE_PATH", func(c *Config, v string) error { c.Cache.SQLitePath = v; return nil }},
	{"LANDMARKS_REDIS_URL", func(c *Config, v string) error { c.Cache.RedisURL = v; return nil }},
	{"LANDMARKS_CACHE_TTL", func(c *Config, v string) error { return setDuration(&c.Cache.TTL, v) }},
	{"LANDMARKS_UPSTREAM_URL", func(c *Config, v string) error { c.Upstream.BaseURL = v; return nil }},
	{"LANDMARKS_UPSTREAM_TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Upstream.Timeout, v) }},
	{"LANDMARKS_WORKERS", func(c *Config, v string) error { return setInt(&c.Upstream.Workers, v) }},
	{"LANDMARKS_ADMIN_API_KEY", func(c *Config, v string) error { c.Admin.APIKey = v; return nil }},
	{"LANDMARKS_JWT_SECRET", func(c *Config, v string) error { c.Admin.JWTSecret = v; return nil }},
	{"LANDMARKS_LOG_LEVEL", func(c *Config, v string) error { c.Telemetry.LogLevel = v; return nil }},
	{"LANDMARKS_TRACING", func(c *Config, v string) error { c.Telemetry.Tracing = v; return nil }},
	{"LANDMARKS_METRICS", func(c *Config, v string) error { c.Telemetry.Metrics = v; return nil }},
}

func applyEnv(c *Config) error {
	for _, b := range envBindings {
		v, ok := os.LookupEnv(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, b.name, err)
		}
	}
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
