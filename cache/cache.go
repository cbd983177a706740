package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilBackend = errors.New("cache: backend is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrClosed     = errors.New("cache: backend is closed")
)

// Record is one persisted cache entry.
type Record struct {
	Key       string
	Payload   []byte
	WrittenAt time.Time
}

// Backend is the persistent tier.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Atomicity: Save replaces payload and timestamp together; a reader
//     never observes a payload paired with another write's timestamp.
//   - Errors: Load returns (Record{}, false, nil) on a miss; Delete is
//     idempotent.
type Backend interface {
	Load(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error

	// ExpiredKeys lists keys whose WrittenAt is before cutoff.
	ExpiredKeys(ctx context.Context, cutoff time.Time) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
