// Package cache provides the two-tier landmark cache.
//
// Keys are derived deterministically from request parameters (SHA-256 over
// canonical JSON). Values live in a bounded LRU memo tier in front of a
// persistent Backend (memory, SQLite or Redis). Every record carries the
// time it was written; a record older than the policy TTL is never served
// and is removed either on observation or by the Sweeper.
package cache
