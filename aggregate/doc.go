// Package aggregate resolves landmark requests: cache first, then the
// geosearch list, per-place filtering, a bounded detail fan-out,
// classification, and a write-back to the cache.
package aggregate
