package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, policy Policy) (*Store, *MemoryBackend, *fakeClock) {
	t.Helper()
	backend := NewMemoryBackend()
	clock := newFakeClock()
	s, err := NewStore(backend, policy, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s, backend, clock
}

var sample = []landmark.Landmark{
	{Title: "Örebro Castle", Lat: 59.2741, Lon: 15.2150, PageID: 101, Summary: "A medieval castle.", Category: landmark.Historical},
	{Title: "Svampen", Lat: 59.2851, Lon: 15.2271, PageID: 102, Summary: "A water tower.", Category: landmark.Other},
}

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore(nil, DefaultPolicy()); !errors.Is(err, ErrNilBackend) {
		t.Errorf("NewStore(nil) error = %v, want ErrNilBackend", err)
	}
	if _, err := NewStore(NewMemoryBackend(), Policy{}); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("NewStore(zero policy) error = %v, want ErrInvalidPolicy", err)
	}
}

func TestStore_SetThenGet(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "landmarks:k"); found || err != nil {
		t.Fatalf("Get() on empty store = found %v, err %v", found, err)
	}

	if err := s.Set(ctx, "landmarks:k", sample); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := s.Get(ctx, "landmarks:k")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("Get() = %+v, want %+v", got, sample)
	}
}

func TestStore_GetReturnsIndependentCopies(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultPolicy())
	ctx := context.Background()
	_ = s.Set(ctx, "landmarks:k", sample)

	first, _, _ := s.Get(ctx, "landmarks:k")
	first[0].Title = "mutated"

	second, _, _ := s.Get(ctx, "landmarks:k")
	if second[0].Title != sample[0].Title {
		t.Error("mutating a Get result leaked into the cache")
	}
}

func TestStore_EmptyListRoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	if err := s.Set(ctx, "landmarks:k", nil); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := s.Get(ctx, "landmarks:k")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Get() = %#v, want empty non-nil slice", got)
	}
}

func TestStore_ExpiryBoundaryAndRemoval(t *testing.T) {
	s, backend, clock := newTestStore(t, DefaultPolicy())
	ctx := context.Background()
	_ = s.Set(ctx, "landmarks:k", sample)

	clock.Advance(time.Hour)
	if _, found, _ := s.Get(ctx, "landmarks:k"); !found {
		t.Fatal("record exactly TTL old should still hit")
	}

	clock.Advance(time.Nanosecond)
	if _, found, err := s.Get(ctx, "landmarks:k"); found || err != nil {
		t.Fatalf("expired Get() = found %v, err %v", found, err)
	}
	if backend.Len() != 0 {
		t.Errorf("expired record left in persistent tier")
	}
	if s.MemoLen() != 0 {
		t.Errorf("expired record left in memo tier")
	}
}

func TestStore_MemoStalenessUsesWriteTime(t *testing.T) {
	s, _, clock := newTestStore(t, DefaultPolicy())
	ctx := context.Background()
	_ = s.Set(ctx, "landmarks:k", sample)

	clock.Advance(59 * time.Minute)
	if _, found, _ := s.Get(ctx, "landmarks:k"); !found {
		t.Fatal("expected hit")
	}

	// The memo entry was just read; its age still counts from the write.
	clock.Advance(2 * time.Minute)
	if _, found, _ := s.Get(ctx, "landmarks:k"); found {
		t.Error("memo served a record older than TTL")
	}
}

func TestStore_MemoCapacityIsBounded(t *testing.T) {
	policy := DefaultPolicy()
	policy.MemoCapacity = 2
	s, _, _ := newTestStore(t, policy)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = s.Set(ctx, fmt.Sprintf("landmarks:%d", i), sample)
	}
	if s.MemoLen() != 2 {
		t.Errorf("MemoLen() = %d, want 2", s.MemoLen())
	}

	if _, found, _ := s.Get(ctx, "landmarks:0"); !found {
		t.Error("evicted memo entry should be served from the persistent tier")
	}
}

func TestStore_SetInvalidatesOnlyThatKey(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	_ = s.Set(ctx, "landmarks:a", sample)
	_ = s.Set(ctx, "landmarks:b", sample)

	updated := sample[:1]
	_ = s.Set(ctx, "landmarks:a", updated)

	a, _, _ := s.Get(ctx, "landmarks:a")
	b, _, _ := s.Get(ctx, "landmarks:b")
	if !reflect.DeepEqual(a, updated) {
		t.Errorf("Get(a) = %+v, want updated payload", a)
	}
	if !reflect.DeepEqual(b, sample) {
		t.Errorf("Get(b) = %+v, want untouched payload", b)
	}
	if s.MemoLen() != 2 {
		t.Errorf("MemoLen() = %d, want 2", s.MemoLen())
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	s, _, clock := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	_ = s.Set(ctx, "landmarks:k", sample)
	clock.Advance(50 * time.Minute)
	_ = s.Set(ctx, "landmarks:k", sample[1:])
	clock.Advance(50 * time.Minute)

	got, found, _ := s.Get(ctx, "landmarks:k")
	if !found || len(got) != 1 {
		t.Errorf("Get() = %+v, found %v; rewrite should refresh the write time", got, found)
	}
}

func TestStore_Clear(t *testing.T) {
	s, backend, _ := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	_ = s.Set(ctx, "landmarks:a", sample)
	_ = s.Set(ctx, "landmarks:b", sample)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if backend.Len() != 0 || s.MemoLen() != 0 {
		t.Errorf("Clear() left backend=%d memo=%d", backend.Len(), s.MemoLen())
	}
	if _, found, _ := s.Get(ctx, "landmarks:a"); found {
		t.Error("Get() after Clear should miss")
	}
}

func TestStore_Sweep(t *testing.T) {
	s, backend, clock := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	_ = s.Set(ctx, "landmarks:old", sample)
	clock.Advance(50 * time.Minute)
	_ = s.Set(ctx, "landmarks:new", sample)
	clock.Advance(20 * time.Minute)

	removed, err := s.Sweep(ctx, clock.Now())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Sweep() removed = %d, want 1", removed)
	}
	if backend.Len() != 1 {
		t.Errorf("backend.Len() = %d, want 1", backend.Len())
	}
	if _, found, _ := s.Get(ctx, "landmarks:new"); !found {
		t.Error("fresh record should survive a sweep")
	}
	if _, found, _ := s.Get(ctx, "landmarks:old"); found {
		t.Error("swept record should be gone from the memo tier too")
	}
}

func TestStore_SweepSkipsRecordRewrittenAfterListing(t *testing.T) {
	s, _, clock := newTestStore(t, DefaultPolicy())
	ctx := context.Background()
	_ = s.Set(ctx, "landmarks:k", sample)
	clock.Advance(2 * time.Hour)
	_ = s.Set(ctx, "landmarks:k", sample)

	// A rewrite between listing and deletion leaves a fresh record.
	if removed, _ := s.expireOne(ctx, "landmarks:k", clock.Now()); removed {
		t.Error("expireOne deleted a fresh record")
	}
}

type failingBackend struct {
	*MemoryBackend
	err error
}

func (f failingBackend) Load(context.Context, string) (Record, bool, error) {
	return Record{}, false, f.err
}
func (f failingBackend) Save(context.Context, Record) error { return f.err }
func (f failingBackend) DeleteAll(context.Context) error    { return f.err }
func (f failingBackend) ExpiredKeys(context.Context, time.Time) ([]string, error) {
	return nil, f.err
}

func TestStore_PersistenceFailures(t *testing.T) {
	ioErr := errors.New("disk I/O error")
	s, err := NewStore(failingBackend{MemoryBackend: NewMemoryBackend(), err: ioErr}, DefaultPolicy())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ctx := context.Background()

	got, found, err := s.Get(ctx, "landmarks:k")
	if found || got != nil {
		t.Errorf("failed Get() = %v, %v; want forced miss", got, found)
	}
	if !errors.Is(err, landmark.ErrPersistence) || !errors.Is(err, ioErr) {
		t.Errorf("Get() error = %v, want persistence failure wrapping cause", err)
	}

	if err := s.Set(ctx, "landmarks:k", sample); landmark.KindOf(err) != landmark.PersistenceFailure {
		t.Errorf("Set() error = %v, want PersistenceFailure", err)
	}
	if s.MemoLen() != 0 {
		t.Error("failed Set() must not populate the memo")
	}
	if err := s.Clear(ctx); !errors.Is(err, landmark.ErrPersistence) {
		t.Errorf("Clear() error = %v", err)
	}
	if _, err := s.Sweep(ctx, epoch); !errors.Is(err, landmark.ErrPersistence) {
		t.Errorf("Sweep() error = %v", err)
	}
}

func TestStore_InvalidKey(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultPolicy())
	if _, _, err := s.Get(context.Background(), ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get(\"\") error = %v", err)
	}
}

type lookupRecorder struct {
	mu      sync.Mutex
	lookups []string
}

func (r *lookupRecorder) RecordOperation(context.Context, observe.Operation, time.Duration, error) {}

func (r *lookupRecorder) RecordCacheLookup(_ context.Context, tier, result string) {
	r.mu.Lock()
	r.lookups = append(r.lookups, tier+"/"+result)
	r.mu.Unlock()
}

func TestStore_RecordsLookups(t *testing.T) {
	rec := &lookupRecorder{}
	clock := newFakeClock()
	policy := DefaultPolicy()
	policy.MemoCapacity = 1
	s, _ := NewStore(NewMemoryBackend(), policy,
		WithClock(clock.Now),
		WithMiddleware(observe.NewMiddleware(nil, rec, nil)),
	)
	ctx := context.Background()

	_ = s.Set(ctx, "landmarks:a", sample)
	_, _, _ = s.Get(ctx, "landmarks:a")
	_ = s.Set(ctx, "landmarks:b", sample)
	_, _, _ = s.Get(ctx, "landmarks:a")
	clock.Advance(2 * time.Hour)
	_, _, _ = s.Get(ctx, "landmarks:a")

	want := []string{
		"memo/hit",
		"memo/miss", "persistent/hit",
		"memo/expired", "persistent/expired",
	}
	if !reflect.DeepEqual(rec.lookups, want) {
		t.Errorf("lookups = %v, want %v", rec.lookups, want)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s, _, _ := newTestStore(t, DefaultPolicy())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("landmarks:%d", i%4)
			for j := 0; j < 50; j++ {
				if err := s.Set(ctx, key, sample[:1+(j%2)]); err != nil {
					t.Errorf("Set() error = %v", err)
					return
				}
				got, found, err := s.Get(ctx, key)
				if err != nil || !found {
					t.Errorf("Get() = found %v, err %v", found, err)
					return
				}
				if len(got) == 0 || got[0].Title != sample[0].Title {
					t.Errorf("torn read: %+v", got)
					return
				}
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			_, _ = s.Sweep(ctx, epoch)
		}
	}()
	wg.Wait()
}
