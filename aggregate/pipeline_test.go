package aggregate

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/landmarks/cache"
	"github.com/jonwraymond/landmarks/landmark"
	"github.com/jonwraymond/landmarks/observe"
	"github.com/jonwraymond/landmarks/resilience"
)

type fakeGateway struct {
	places     []landmark.RawPlace
	listErr    error
	extracts   map[int64]string
	failing    map[int64]bool
	rejectWith map[int64]error
	block      chan struct{}

	mu          sync.Mutex
	searches    []string
	listCalls   atomic.Int32
	detailCalls atomic.Int32
	inFlight    atomic.Int32
	peak        atomic.Int32
}

func (g *fakeGateway) FetchList(_ context.Context, _, _ float64, search string) ([]landmark.RawPlace, error) {
	g.listCalls.Add(1)
	g.mu.Lock()
	g.searches = append(g.searches, search)
	g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.places, nil
}

func (g *fakeGateway) FetchDetail(ctx context.Context, pageID int64) (string, error) {
	g.detailCalls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return "", landmark.Unavailable("geosearch.detail", ctx.Err())
		}
	}
	if err := g.rejectWith[pageID]; err != nil {
		return "", landmark.Unavailable("geosearch.detail", err)
	}
	if g.failing[pageID] {
		return "", landmark.Unavailable("geosearch.detail", errors.New("503"))
	}
	return g.extracts[pageID], nil
}

func newStore(t *testing.T) (*cache.Store, *cache.MemoryBackend) {
	t.Helper()
	backend := cache.NewMemoryBackend()
	s, err := cache.NewStore(backend, cache.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s, backend
}

func fivePlaces() *fakeGateway {
	return &fakeGateway{
		places: []landmark.RawPlace{
			{PageID: 1, Title: "Örebro Castle", Lat: 59.274, Lon: 15.215},
			{PageID: 2, Title: "Svampen", Lat: 59.285, Lon: 15.227},
			{PageID: 3, Title: "Örebro County Museum", Lat: 59.273, Lon: 15.218},
			{PageID: 4, Title: "Järntorget", Lat: 59.271, Lon: 15.210},
			{PageID: 5, Title: "Kägleholm Mound", Lat: 59.290, Lon: 15.240},
		},
		extracts: map[int64]string{
			1: "A medieval castle on an islet in the Svartån.",
			2: "A water tower built in 1958.",
			3: "A museum of regional painting and crafts.",
			4: "A square in the city centre.",
			5: "An ancient burial mound.",
		},
	}
}

func TestResolve_EndToEndCategoryFilter(t *testing.T) {
	store, _ := newStore(t)
	gw := fivePlaces()
	p := New(store, gw)

	got := p.Resolve(context.Background(), landmark.RequestParams{
		Lat:        landmark.Float(59.2753),
		Lon:        landmark.Float(15.2134),
		Categories: landmark.ParseCategories("Historical,Cultural"),
	})

	wantTitles := []string{"Örebro Castle", "Örebro County Museum", "Kägleholm Mound"}
	wantCats := []landmark.Category{landmark.Historical, landmark.Cultural, landmark.Historical}
	if len(got) != len(wantTitles) {
		t.Fatalf("Resolve() returned %d landmarks: %+v", len(got), got)
	}
	for i := range got {
		if got[i].Title != wantTitles[i] || got[i].Category != wantCats[i] {
			t.Errorf("got[%d] = %s/%s, want %s/%s", i, got[i].Title, got[i].Category, wantTitles[i], wantCats[i])
		}
	}
	if got[0].PageID != 1 || got[0].Summary != "A medieval castle on an islet in the Svartån." {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestResolve_UncategorizedKeepsListOrder(t *testing.T) {
	store, _ := newStore(t)
	gw := fivePlaces()
	got := New(store, gw, WithWorkers(3)).Resolve(context.Background(), landmark.RequestParams{})

	if len(got) != 5 {
		t.Fatalf("Resolve() returned %d landmarks", len(got))
	}
	for i, lm := range got {
		if lm.PageID != int64(i+1) {
			t.Errorf("position %d holds page %d", i, lm.PageID)
		}
	}
	if got[1].Category != landmark.Other || got[3].Category != landmark.Other {
		t.Errorf("expected Other for pages 2 and 4, got %s and %s", got[1].Category, got[3].Category)
	}
}

func TestResolve_SpecificMatch(t *testing.T) {
	store, _ := newStore(t)
	gw := &fakeGateway{
		places: []landmark.RawPlace{
			{PageID: 1, Title: "Örebro Castle"},
			{PageID: 2, Title: "Örebro Castle Park"},
			{PageID: 3, Title: "Castle Hotel"},
		},
		extracts: map[int64]string{1: "A castle.", 2: "A park.", 3: "A hotel."},
	}

	got := New(store, gw).Resolve(context.Background(), landmark.RequestParams{
		Search:   "  örebro castle ",
		Specific: true,
	})

	if len(got) != 1 || got[0].Title != "Örebro Castle" {
		t.Fatalf("Resolve() = %+v, want only Örebro Castle", got)
	}
	if gw.detailCalls.Load() != 1 {
		t.Errorf("detail calls = %d, want 1", gw.detailCalls.Load())
	}
	if gw.searches[0] != "örebro castle" {
		t.Errorf("upstream search = %q, want trimmed term", gw.searches[0])
	}
}

func TestResolve_SpecificNoMatchIsEmpty(t *testing.T) {
	store, _ := newStore(t)
	gw := &fakeGateway{places: []landmark.RawPlace{{PageID: 1, Title: "Svampen"}}}

	got, err := New(store, gw).ResolveStrict(context.Background(), landmark.RequestParams{
		Search:   "Vasa Museum",
		Specific: true,
	})
	if err != nil {
		t.Fatalf("ResolveStrict() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ResolveStrict() = %#v, want empty", got)
	}
	if gw.detailCalls.Load() != 0 {
		t.Errorf("detail calls = %d, want 0", gw.detailCalls.Load())
	}
}

func TestResolve_BoundingBoxTolerance(t *testing.T) {
	store, _ := newStore(t)
	gw := &fakeGateway{
		places: []landmark.RawPlace{
			{PageID: 1, Title: "Inside", Lat: 59.2, Lon: 15.2},
			{PageID: 2, Title: "Margin", Lat: 59.6, Lon: 15.2},
			{PageID: 3, Title: "Far", Lat: 60.0, Lon: 15.2},
			{PageID: 4, Title: "West margin", Lat: 59.2, Lon: 14.85},
		},
	}

	got := New(store, gw).Resolve(context.Background(), landmark.RequestParams{
		South: landmark.Float(59.0),
		North: landmark.Float(59.5),
		West:  landmark.Float(15.0),
		East:  landmark.Float(15.5),
	})

	var titles []string
	for _, lm := range got {
		titles = append(titles, lm.Title)
	}
	if strings.Join(titles, ",") != "Inside,Margin,West margin" {
		t.Errorf("kept %v", titles)
	}
	if gw.detailCalls.Load() != 3 {
		t.Errorf("detail calls = %d, want 3", gw.detailCalls.Load())
	}
}

func TestResolve_PointTakesPrecedenceOverBox(t *testing.T) {
	store, _ := newStore(t)
	gw := &fakeGateway{places: []landmark.RawPlace{{PageID: 1, Title: "Far", Lat: 10, Lon: 10}}}

	got := New(store, gw).Resolve(context.Background(), landmark.RequestParams{
		Lat:   landmark.Float(59.0),
		Lon:   landmark.Float(15.0),
		North: landmark.Float(59.5),
	})
	if len(got) != 1 {
		t.Errorf("box filter should be inactive when lat/lon are given, got %+v", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	store, _ := newStore(t)
	gw := fivePlaces()
	p := New(store, gw)
	params := landmark.RequestParams{Lat: landmark.Float(59.27), Lon: landmark.Float(15.21)}

	first := p.Resolve(context.Background(), params)
	second := p.Resolve(context.Background(), params)

	if gw.listCalls.Load() != 1 {
		t.Errorf("list calls = %d, want 1", gw.listCalls.Load())
	}
	if gw.detailCalls.Load() != int32(len(first)) {
		t.Errorf("detail calls = %d, want %d", gw.detailCalls.Load(), len(first))
	}
	if len(first) != len(second) {
		t.Fatalf("second call returned %d, first %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("[%d] %+v != %+v", i, first[i], second[i])
		}
	}
}

func TestResolve_ListFailureDegradesAndIsNotCached(t *testing.T) {
	store, backend := newStore(t)
	var buf bytes.Buffer
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("warn", &buf))
	gw := &fakeGateway{listErr: landmark.Unavailable("geosearch.list", errors.New("dial tcp: refused"))}
	p := New(store, gw, WithMiddleware(mw))

	got := p.Resolve(context.Background(), landmark.RequestParams{})
	if got == nil || len(got) != 0 {
		t.Errorf("Resolve() = %#v, want empty", got)
	}
	if backend.Len() != 0 {
		t.Error("upstream failure was cached")
	}
	if !strings.Contains(buf.String(), "upstream_unavailable") {
		t.Errorf("failure kind not logged: %s", buf.String())
	}

	_, err := p.ResolveStrict(context.Background(), landmark.RequestParams{})
	if !errors.Is(err, landmark.ErrUpstreamUnavailable) {
		t.Errorf("ResolveStrict() error = %v, want unavailable", err)
	}
	if gw.listCalls.Load() != 2 {
		t.Errorf("list calls = %d, want 2", gw.listCalls.Load())
	}
}

func TestResolve_DetailFailureDropsOnlyThatPlace(t *testing.T) {
	store, _ := newStore(t)
	gw := fivePlaces()
	gw.failing = map[int64]bool{3: true}

	got := New(store, gw).Resolve(context.Background(), landmark.RequestParams{})
	if len(got) != 4 {
		t.Fatalf("Resolve() returned %d, want 4", len(got))
	}
	for _, lm := range got {
		if lm.PageID == 3 {
			t.Error("failed place should be dropped")
		}
	}
}

func TestResolve_DetailFailureIsCached(t *testing.T) {
	store, backend := newStore(t)
	gw := fivePlaces()
	gw.failing = map[int64]bool{3: true}

	_ = New(store, gw).Resolve(context.Background(), landmark.RequestParams{})
	if backend.Len() != 1 {
		t.Errorf("backend holds %d records, want 1", backend.Len())
	}
}

func TestResolve_GuardRejectionIsNotCached(t *testing.T) {
	for _, reason := range []error{resilience.ErrRateLimitExceeded, resilience.ErrCircuitOpen, resilience.ErrBulkheadFull} {
		t.Run(reason.Error(), func(t *testing.T) {
			store, backend := newStore(t)
			gw := fivePlaces()
			gw.rejectWith = map[int64]error{2: reason}
			p := New(store, gw)

			got := p.Resolve(context.Background(), landmark.RequestParams{})
			if len(got) != 4 {
				t.Fatalf("Resolve() returned %d, want 4", len(got))
			}
			if backend.Len() != 0 {
				t.Error("result thinned by a guard rejection was cached")
			}

			gw.rejectWith = nil
			if got := p.Resolve(context.Background(), landmark.RequestParams{}); len(got) != 5 {
				t.Errorf("second Resolve() returned %d, want 5", len(got))
			}
			if backend.Len() != 1 {
				t.Error("complete result was not cached")
			}
		})
	}
}

func TestResolve_TruncatesButClassifiesFullExtract(t *testing.T) {
	store, _ := newStore(t)
	long := strings.Repeat("x", 250) + " church"
	gw := &fakeGateway{
		places:   []landmark.RawPlace{{PageID: 9, Title: "Long"}},
		extracts: map[int64]string{9: long},
	}

	got := New(store, gw).Resolve(context.Background(), landmark.RequestParams{})
	if len(got) != 1 {
		t.Fatalf("Resolve() = %+v", got)
	}
	if got[0].Summary != strings.Repeat("x", 200)+"..." {
		t.Errorf("Summary = %q", got[0].Summary)
	}
	if got[0].Category != landmark.Religious {
		t.Errorf("Category = %s, want Religious from the untruncated text", got[0].Category)
	}
}

func TestResolve_BoundedFanOut(t *testing.T) {
	store, _ := newStore(t)
	gw := &fakeGateway{block: make(chan struct{})}
	for i := int64(1); i <= 20; i++ {
		gw.places = append(gw.places, landmark.RawPlace{PageID: i, Title: "p"})
	}

	done := make(chan []landmark.Landmark, 1)
	go func() { done <- New(store, gw, WithWorkers(3)).Resolve(context.Background(), landmark.RequestParams{}) }()

	time.Sleep(30 * time.Millisecond)
	close(gw.block)

	got := <-done
	if len(got) != 20 {
		t.Fatalf("Resolve() returned %d, want 20", len(got))
	}
	if gw.peak.Load() > 3 {
		t.Errorf("peak concurrent details = %d, want <= 3", gw.peak.Load())
	}
}

func TestResolve_CancellationReturnsPromptlyWithoutCaching(t *testing.T) {
	store, backend := newStore(t)
	gw := fivePlaces()
	gw.block = make(chan struct{})
	defer close(gw.block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for gw.detailCalls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	start := time.Now()
	_, err := New(store, gw).ResolveStrict(ctx, landmark.RequestParams{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveStrict() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled resolution did not return promptly")
	}
	if backend.Len() != 0 {
		t.Error("cancelled resolution wrote to the cache")
	}
}

type brokenCache struct{ sets atomic.Int32 }

func (b *brokenCache) Get(context.Context, string) ([]landmark.Landmark, bool, error) {
	return nil, false, landmark.Persistence("cache.get", errors.New("database is locked"))
}

func (b *brokenCache) Set(context.Context, string, []landmark.Landmark) error {
	b.sets.Add(1)
	return landmark.Persistence("cache.set", errors.New("disk full"))
}

func TestResolve_PersistenceFailuresAreSwallowed(t *testing.T) {
	c := &brokenCache{}
	gw := fivePlaces()

	got, err := New(c, gw).ResolveStrict(context.Background(), landmark.RequestParams{})
	if err != nil {
		t.Fatalf("ResolveStrict() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("Resolve() returned %d, want 5", len(got))
	}
	if gw.listCalls.Load() != 1 || c.sets.Load() != 1 {
		t.Errorf("list calls = %d, sets = %d", gw.listCalls.Load(), c.sets.Load())
	}
}
