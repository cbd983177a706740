package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
)

const stripeCount = 64

// Lookup tiers reported to metrics.
const (
	TierMemo       = "memo"
	TierPersistent = "persistent"
)

// Store is the two-tier landmark cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. Get, Set and expiry deletes for
//     one key are serialized; different keys proceed in parallel.
//   - Errors: every returned error is a *landmark.Failure of kind
//     PersistenceFailure. Get never reports found=true with an error.
type Store struct {
	backend Backend
	memo    *memo
	policy  Policy
	now     func() time.Time
	mw      *observe.Middleware

	stripes [stripeCount]sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithMiddleware attaches telemetry.
func WithMiddleware(mw *observe.Middleware) StoreOption {
	return func(s *Store) {
		if mw != nil {
			s.mw = mw
		}
	}
}

// NewStore builds a Store over backend.
func NewStore(backend Backend, policy Policy, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	m, err := newMemo(policy.MemoCapacity)
	if err != nil {
		return nil, fmt.Errorf("cache: creating memo: %w", err)
	}

	s := &Store{
		backend: backend,
		memo:    m,
		policy:  policy,
		now:     time.Now,
		mw:      observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%stripeCount]
}

// Get returns the landmarks stored under key if a fresh record exists.
// A stale record is deleted from both tiers and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]landmark.Landmark, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, landmark.Persistence("cache.get", err)
	}

	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	metrics := s.mw.Metrics()

	if e, ok := s.memo.get(key); ok {
		if s.policy.Expired(e.writtenAt, now) {
			metrics.RecordCacheLookup(ctx, TierMemo, observe.LookupExpired)
		} else if out, err := decode(e.payload); err == nil {
			metrics.RecordCacheLookup(ctx, TierMemo, observe.LookupHit)
			return out, true, nil
		}
		s.memo.remove(key)
	} else {
		metrics.RecordCacheLookup(ctx, TierMemo, observe.LookupMiss)
	}

	rec, found, err := s.backend.Load(ctx, key)
	if err != nil {
		metrics.RecordCacheLookup(ctx, TierPersistent, observe.LookupError)
		return nil, false, landmark.Persistence("cache.get", err)
	}
	if !found {
		metrics.RecordCacheLookup(ctx, TierPersistent, observe.LookupMiss)
		return nil, false, nil
	}

	if s.policy.Expired(rec.WrittenAt, now) {
		metrics.RecordCacheLookup(ctx, TierPersistent, observe.LookupExpired)
		if err := s.backend.Delete(ctx, key); err != nil {
			return nil, false, landmark.Persistence("cache.expire", err)
		}
		return nil, false, nil
	}

	out, err := decode(rec.Payload)
	if err != nil {
		metrics.RecordCacheLookup(ctx, TierPersistent, observe.LookupError)
		return nil, false, landmark.Persistence("cache.decode", err)
	}

	metrics.RecordCacheLookup(ctx, TierPersistent, observe.LookupHit)
	s.memo.put(key, memoEntry{payload: rec.Payload, writtenAt: rec.WrittenAt})
	return out, true, nil
}

// Set replaces the record for key, stamped with the current time. The memo
// entry for key is dropped before the write and repopulated only after the
// persistent tier accepted it.
func (s *Store) Set(ctx context.Context, key string, landmarks []landmark.Landmark) error {
	if err := ValidateKey(key); err != nil {
		return landmark.Persistence("cache.set", err)
	}
	if landmarks == nil {
		landmarks = []landmark.Landmark{}
	}
	payload, err := json.Marshal(landmarks)
	if err != nil {
		return landmark.Persistence("cache.set", err)
	}

	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	s.memo.remove(key)

	rec := Record{Key: key, Payload: payload, WrittenAt: s.now()}
	if err := s.backend.Save(ctx, rec); err != nil {
		return landmark.Persistence("cache.set", err)
	}
	s.memo.put(key, memoEntry{payload: payload, writtenAt: rec.WrittenAt})
	return nil
}

// Clear empties both tiers. It holds every key stripe, so no Get or Set
// interleaves with it.
func (s *Store) Clear(ctx context.Context) error {
	for i := range s.stripes {
		s.stripes[i].Lock()
	}
	defer func() {
		for i := range s.stripes {
			s.stripes[i].Unlock()
		}
	}()

	s.memo.purge()
	if err := s.backend.DeleteAll(ctx); err != nil {
		return landmark.Persistence("cache.clear", err)
	}
	return nil
}

// Sweep deletes every persistent record stale at now and returns how many
// were removed. Each key is re-checked under its own lock, so a record
// rewritten after listing survives.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	op := observe.Operation{Component: "cache", Name: "sweep"}

	err := s.mw.Run(ctx, op, func(ctx context.Context) error {
		keys, err := s.backend.ExpiredKeys(ctx, s.policy.Cutoff(now))
		if err != nil {
			return landmark.Persistence("cache.sweep", err)
		}

		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			deleted, err := s.expireOne(ctx, key, now)
			if err != nil {
				return landmark.Persistence("cache.sweep", err)
			}
			if deleted {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (s *Store) expireOne(ctx context.Context, key string, now time.Time) (bool, error) {
	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	rec, found, err := s.backend.Load(ctx, key)
	if err != nil {
		return false, err
	}
	if !found || !s.policy.Expired(rec.WrittenAt, now) {
		return false, nil
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return false, err
	}
	s.memo.remove(key)
	return true, nil
}

// Ping checks the persistent tier.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Policy returns the store policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// MemoLen returns the number of memo-resident entries.
func (s *Store) MemoLen() int {
	return s.memo.len()
}

// Close releases the persistent tier.
func (s *Store) Close() error {
	return s.backend.Close()
}

func decode(payload []byte) ([]landmark.Landmark, error) {
	var out []landmark.Landmark
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []landmark.Landmark{}
	}
	return out, nil
}
