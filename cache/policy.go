package cache

import (
	"errors"
	"time"
)

// Policy configures cache retention.
type Policy struct {
	// TTL is how long a record stays servable after it was written.
	TTL time.Duration

	// MemoCapacity bounds the LRU memo tier.
	MemoCapacity int

	// SweepInterval is the Sweeper tick period.
	SweepInterval time.Duration
}

// ErrInvalidPolicy indicates a non-positive TTL, capacity or interval.
var ErrInvalidPolicy = errors.New("cache: invalid policy")

// DefaultPolicy returns the default policy.
// TTL: 1 hour, MemoCapacity: 256, SweepInterval: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		TTL:           time.Hour,
		MemoCapacity:  256,
		SweepInterval: time.Hour,
	}
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	if p.TTL <= 0 || p.MemoCapacity <= 0 || p.SweepInterval <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Expired reports whether a record written at writtenAt is stale at now.
// A record exactly TTL old is still fresh.
func (p Policy) Expired(writtenAt, now time.Time) bool {
	return now.Sub(writtenAt) > p.TTL
}

// Cutoff returns the write time before which records are stale at now.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.TTL)
}
