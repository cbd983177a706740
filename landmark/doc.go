// Package landmark defines the domain model shared by the aggregation
// pipeline: request parameters, landmarks, categories, and the failure
// taxonomy used across the upstream gateway and the cache store.
//
// Everything in this package is pure: no I/O, no clocks, no globals that
// change after init.
package landmark
