package viewer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"
	"go.uber.org/zap"

	"market-ticker/internal/market"
	"market-ticker/internal/store"
)

type fakeLoader struct {
	mu    sync.Mutex
	set   market.MarketDataSet
	err   error
	loads int
}

func (f *fakeLoader) Load(context.Context) (market.MarketDataSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.set.Clone(), nil
}

func (f *fakeLoader) put(set market.MarketDataSet) {
	f.mu.Lock()
	f.set = set
	f.mu.Unlock()
}

func (f *fakeLoader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// manualAfter captures scheduled callbacks instead of running them.
type manualAfter struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (m *manualAfter) after(d time.Duration, f func()) {
	m.mu.Lock()
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, f)
	m.mu.Unlock()
}

func (m *manualAfter) fire(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		t.Fatal("no retry scheduled")
	}
	f := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	f()
}

func (m *manualAfter) scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func newTestViewer(loader Loader) (*Viewer, *Page, *manualAfter) {
	page := NewPage(10 * time.Second)
	v := New(Config{RefreshInterval: time.Hour, RetryDelay: 2 * time.Second}, market.Instruments, loader, page, zap.NewNop())
	clock := &manualAfter{}
	v.after = clock.after
	return v, page, clock
}

func TestRender_SingleCard(t *testing.T) {
	loader := &fakeLoader{set: market.MarketDataSet{
		"SPX": {Price: 5000, Change: 10, ChangePct: "0.20", Up: true},
	}}
	v, page, clock := newTestViewer(loader)

	v.Render(context.Background())

	if page.State() != StateRendered {
		t.Fatalf("state = %s, want %s", page.State(), StateRendered)
	}
	html := string(page.Fragment())
	if got := strings.Count(html, `class="market-card `); got != 1 {
		t.Errorf("rendered %d cards, want 1:\n%s", got, html)
	}
	for _, want := range []string{`class="market-card up"`, "▲", "+0.20%", "5,000", `data-key="SPX"`} {
		if !strings.Contains(html, want) {
			t.Errorf("fragment missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, LoadingText) {
		t.Error("fragment still shows the loading placeholder")
	}
	if clock.scheduled() != 0 {
		t.Error("retry scheduled although data was present")
	}
}

func TestRender_LoadingRetriesOncePerCall(t *testing.T) {
	loader := &fakeLoader{}
	v, page, clock := newTestViewer(loader)
	ctx := context.Background()

	v.Render(ctx)
	if page.State() != StateLoading {
		t.Fatalf("state = %s, want %s", page.State(), StateLoading)
	}
	if !strings.Contains(string(page.Fragment()), LoadingText) {
		t.Errorf("fragment = %q, want the loading placeholder", page.Fragment())
	}
	if clock.scheduled() != 1 {
		t.Fatalf("scheduled = %d, want 1", clock.scheduled())
	}
	if clock.delays[0] != 2*time.Second {
		t.Errorf("retry delay = %s, want 2s", clock.delays[0])
	}
	if loader.count() != 1 {
		t.Errorf("loads = %d, want 1", loader.count())
	}

	// Still empty: the retry re-reads once and schedules exactly one more.
	clock.fire(t)
	if loader.count() != 2 {
		t.Errorf("loads after retry = %d, want 2", loader.count())
	}
	if clock.scheduled() != 1 {
		t.Errorf("scheduled after retry = %d, want 1", clock.scheduled())
	}

	// Data arrives: the next retry renders and stops rescheduling.
	loader.put(market.MarketDataSet{"OIL": {Price: 67.3, Change: -0.5, ChangePct: "-0.74", Up: false}})
	clock.fire(t)
	if page.State() != StateRendered {
		t.Errorf("state = %s, want %s", page.State(), StateRendered)
	}
	if clock.scheduled() != 0 {
		t.Errorf("scheduled = %d after data arrived, want 0", clock.scheduled())
	}
}

func TestRender_PendingRetryIsNotDuplicated(t *testing.T) {
	v, _, clock := newTestViewer(&fakeLoader{})
	ctx := context.Background()

	v.Render(ctx)
	v.Render(ctx)
	if clock.scheduled() != 1 {
		t.Errorf("scheduled = %d, want 1", clock.scheduled())
	}
}

func TestRender_LoadErrorKeepsRenderedList(t *testing.T) {
	loader := &fakeLoader{set: market.MarketDataSet{
		"SPX": {Price: 5000, Change: 10, ChangePct: "0.20", Up: true},
	}}
	v, page, clock := newTestViewer(loader)
	ctx := context.Background()

	v.Render(ctx)
	before := page.Fragment()

	loader.mu.Lock()
	loader.err = errors.New("database is locked")
	loader.mu.Unlock()
	v.Render(ctx)

	if page.State() != StateRendered {
		t.Errorf("state = %s after read error, want %s", page.State(), StateRendered)
	}
	if page.Fragment() != before {
		t.Errorf("fragment changed after read error:\n%s", page.Fragment())
	}
	if page.Renders() != 1 {
		t.Errorf("renders = %d, want 1", page.Renders())
	}
	if clock.scheduled() != 0 {
		t.Errorf("scheduled = %d after read error, want 0", clock.scheduled())
	}
}

func TestRender_FirstLoadErrorShowsLoading(t *testing.T) {
	v, page, clock := newTestViewer(&fakeLoader{err: errors.New("database is locked")})

	v.Render(context.Background())
	if page.State() != StateLoading {
		t.Errorf("state = %s, want %s", page.State(), StateLoading)
	}
	if !strings.Contains(string(page.Fragment()), LoadingText) {
		t.Errorf("fragment = %q, want the loading placeholder", page.Fragment())
	}
	if clock.scheduled() != 0 {
		t.Errorf("scheduled = %d, want 0", clock.scheduled())
	}
}

func TestRender_CancelledContextStopsRetries(t *testing.T) {
	loader := &fakeLoader{}
	v, _, clock := newTestViewer(loader)
	ctx, cancel := context.WithCancel(context.Background())

	v.Render(ctx)
	cancel()
	clock.fire(t)
	if loader.count() != 1 {
		t.Errorf("loads = %d, want 1", loader.count())
	}
	if clock.scheduled() != 0 {
		t.Errorf("scheduled = %d, want 0", clock.scheduled())
	}
}

func TestRender_ReplacesWholeList(t *testing.T) {
	loader := &fakeLoader{set: market.MarketDataSet{
		"SPX":  {Price: 5000, Change: 10, ChangePct: "0.20", Up: true},
		"GOLD": {Price: 2300, Change: -20, ChangePct: "-0.86", Up: false},
	}}
	v, page, _ := newTestViewer(loader)
	ctx := context.Background()

	v.Render(ctx)
	if got := strings.Count(string(page.Fragment()), `class="market-card `); got != 2 {
		t.Fatalf("cards = %d, want 2", got)
	}

	loader.put(market.MarketDataSet{"TASI": {Price: 27.1, Change: 0.1, ChangePct: "0.37", Up: true}})
	v.Render(ctx)
	html := string(page.Fragment())
	if got := strings.Count(html, `class="market-card `); got != 1 {
		t.Errorf("cards = %d after re-render, want 1", got)
	}
	if strings.Contains(html, `data-key="SPX"`) {
		t.Error("old card survived a full re-render")
	}
	if page.Renders() != 2 {
		t.Errorf("renders = %d, want 2", page.Renders())
	}
}

func TestCards(t *testing.T) {
	set := market.MarketDataSet{
		"OIL": {Price: 67.3, Change: -0.5, ChangePct: "-0.74", Up: false},
		"SPX": {Price: 5000, Change: 10, ChangePct: "0.20", Up: true},
	}
	got := Cards(market.Instruments, set)
	want := []Card{
		{Key: "SPX", Icon: "🇺🇸", Name: "S&P 500", Label: "المؤشر الأمريكي", Price: "5,000", Arrow: "▲", Change: "+0.20%", Direction: "up"},
		{Key: "OIL", Icon: "🛢️", Name: "النفط", Label: "خام WTI / برميل", Price: "67.30", Arrow: "▼", Change: "-0.74%", Direction: "down"},
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("Cards: -want/+got:\n%s", diff)
	}
}

func TestRun_RefreshesOnTicker(t *testing.T) {
	loader := &fakeLoader{set: market.MarketDataSet{"SPX": {Price: 5000, ChangePct: "0.00", Up: true}}}
	page := NewPage(time.Second)
	v := New(Config{RefreshInterval: 10 * time.Millisecond, RetryDelay: time.Second}, market.Instruments, loader, page, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 65*time.Millisecond)
	defer cancel()
	v.Run(ctx)

	if got := page.Renders(); got < 3 {
		t.Errorf("renders = %d, want the initial render plus ticks", got)
	}
}

func TestRender_EndToEndFromStore(t *testing.T) {
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "ticker.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer kv.Close()

	ctx := context.Background()
	seed := `{"SPX":{"price":5000,"change":10,"changePct":"0.20","up":true}}`
	if err := kv.Set(ctx, store.MarketDataKey, []byte(seed)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	page := NewPage(10 * time.Second)
	v := New(DefaultConfig(), market.Instruments, store.NewMarketData(kv), page, zap.NewNop())
	v.Render(ctx)

	cards := strings.Count(string(page.Fragment()), `class="market-card `)
	if cards != 1 {
		t.Fatalf("cards = %d, want 1", cards)
	}
	doc, err := page.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	for _, want := range []string{`class="market-card up"`, "▲ +0.20%", `content="10"`, `data-state="rendered"`} {
		if !strings.Contains(string(doc), want) {
			t.Errorf("document missing %q", want)
		}
	}
}
