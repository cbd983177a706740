package health

import (
	"context"
	"net/http"
	"time"
)

// Status is the health of one dependency. Higher values are worse.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Probe maps the status onto a readiness reply. Degraded still serves.
func (s Status) Probe() (code int, body string) {
	switch s {
	case StatusHealthy:
		return http.StatusOK, "OK"
	case StatusDegraded:
		return http.StatusOK, "DEGRADED"
	}
	return http.StatusServiceUnavailable, "UNHEALTHY"
}

// Result is the outcome of a single check.
type Result struct {
	Status  Status
	Message string
	Err     error
	Details map[string]any

	// Took is filled in by the Aggregator.
	Took time.Duration
}

func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Err: err}
}

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err}
}

// With returns a copy of r carrying an extra detail.
func (r Result) With(key string, value any) Result {
	details := make(map[string]any, len(r.Details)+1)
	for k, v := range r.Details {
		details[k] = v
	}
	details[key] = value
	r.Details = details
	return r
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckFunc is a check implemented by a plain function.
type CheckFunc func(ctx context.Context) Result

// Func names fn so it can be registered as a Checker.
func Func(name string, fn CheckFunc) Checker {
	return namedFunc{name: name, fn: fn}
}

type namedFunc struct {
	name string
	fn   CheckFunc
}

func (f namedFunc) Name() string                     { return f.name }
func (f namedFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
