// Package httpapi is the thin HTTP route layer over the aggregation
// pipeline and the cache maintenance operations.
//
// Query routes always answer 200 with a JSON array. Maintenance routes
// are wrapped by auth.Middleware when an authenticator is configured.
package httpapi
