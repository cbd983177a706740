// Package health reports whether the service can answer requests.
//
// An Aggregator runs registered Checkers in parallel under one deadline.
// The landmark service registers a persistence check (the cache backend
// answers a ping) and an upstream check (the geosearch circuit breaker is
// closed). The HTTP handlers expose liveness, readiness and a detailed
// JSON report.
//
// An open breaker reports Degraded rather than Unhealthy: requests are
// still answered, from cache or as empty lists.
package health
