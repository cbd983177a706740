package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryBackend is an in-process persistent tier for tests and ephemeral
// deployments.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Record
	closed  bool
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Record)}
}

// Load returns a copy of the record for key.
func (b *MemoryBackend) Load(_ context.Context, key string) (Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return Record{}, false, ErrClosed
	}
	rec, ok := b.entries[key]
	if !ok {
		return Record{}, false, nil
	}
	rec.Payload = slices.Clone(rec.Payload)
	return rec, true, nil
}

// Save stores a copy of rec.
func (b *MemoryBackend) Save(_ context.Context, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	rec.Payload = slices.Clone(rec.Payload)
	b.entries[rec.Key] = rec
	return nil
}

// Delete removes key. A missing key is not an error.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	delete(b.entries, key)
	return nil
}

// DeleteAll removes every record.
func (b *MemoryBackend) DeleteAll(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	clear(b.entries)
	return nil
}

// ExpiredKeys lists keys written before cutoff.
func (b *MemoryBackend) ExpiredKeys(_ context.Context, cutoff time.Time) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}
	var keys []string
	for k, rec := range b.entries {
		if rec.WrittenAt.Before(cutoff) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Ping fails only after Close.
func (b *MemoryBackend) Ping(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the backend closed. Later calls return ErrClosed.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

var _ Backend = (*MemoryBackend)(nil)
