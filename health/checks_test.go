package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/landmarks/resilience"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("persistence", pingFunc(func(context.Context) error { return nil }))
	if ok.Name() != "persistence" {
		t.Errorf("Name() = %q", ok.Name())
	}
	if r := ok.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", r.Status)
	}

	boom := errors.New("disk gone")
	bad := NewPingChecker("persistence", pingFunc(func(context.Context) error { return boom }))
	r := bad.Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Err, boom) {
		t.Errorf("error = %v, want %v", r.Err, boom)
	}
}

func TestBreakerChecker(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "geosearch",
		MaxFailures:  1,
		ResetTimeout: 20 * time.Millisecond,
	})
	checker := NewBreakerChecker(cb)

	if checker.Name() != "geosearch" {
		t.Errorf("Name() = %q, want geosearch", checker.Name())
	}

	r := checker.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("closed status = %v, want healthy", r.Status)
	}
	if r.Details["state"] != "closed" {
		t.Errorf("state detail = %v, want closed", r.Details["state"])
	}

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("upstream down") })

	r = checker.Check(context.Background())
	if r.Status != StatusDegraded {
		t.Fatalf("open status = %v, want degraded", r.Status)
	}
	if !errors.Is(r.Err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", r.Err)
	}

	time.Sleep(40 * time.Millisecond)
	r = checker.Check(context.Background())
	if r.Status != StatusDegraded || r.Details["state"] != "half-open" {
		t.Errorf("half-open result = %v %v", r.Status, r.Details["state"])
	}
}
