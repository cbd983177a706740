// Package resilience guards outbound calls to the geosearch service.
//
// Each guard can be used on its own or composed through an Executor:
//
//   - Bulkhead: bounds concurrent outbound calls (golang.org/x/sync/semaphore).
//   - RateLimiter: token bucket over golang.org/x/time/rate.
//   - CircuitBreaker: sony/gobreaker, tripping on consecutive failures.
//   - Retry: optional retries with backoff, disabled unless configured.
//   - Timeout: bounds each attempt with a context deadline.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 20, Burst: 10})),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "geosearch"})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callUpstream(ctx)
//	})
package resilience
