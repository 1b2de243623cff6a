package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"coin-radar/internal/catalog"
	"coin-radar/internal/detect"
	"coin-radar/internal/domain"
)

type mockHistorian struct {
	mu     sync.Mutex
	series map[string][]domain.PricePoint
	fail   map[string]bool
	calls  map[string]int
}

func newMockHistorian(slugs ...string) *mockHistorian {
	m := &mockHistorian{
		series: map[string][]domain.PricePoint{},
		fail:   map[string]bool{},
		calls:  map[string]int{},
	}
	for _, slug := range slugs {
		m.series[slug] = recentSeries(3)
	}
	return m
}

func (m *mockHistorian) History(ctx context.Context, slug string) ([]domain.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[slug]++
	if m.fail[slug] {
		return nil, errors.New("price fetch failed")
	}
	return m.series[slug], nil
}

type mockRenderer struct {
	url string
	err error
}

func (m *mockRenderer) Render(ctx context.Context, title string, series []domain.PricePoint) (string, error) {
	return m.url, m.err
}

type mockRelated struct {
	coins []domain.RelatedCoin
	err   error
}

func (m *mockRelated) Related(ctx context.Context, name string) ([]domain.RelatedCoin, error) {
	return m.coins, m.err
}

func readyHolder() *catalog.Holder {
	h := catalog.NewHolder()
	h.Set(catalog.Build([]domain.Currency{
		{ID: 1, Slug: "bitcoin", Symbol: "BTC", Name: "Bitcoin"},
		{ID: 1027, Slug: "ethereum", Symbol: "ETH", Name: "Ethereum"},
		{ID: 2, Slug: "litecoin", Symbol: "LTC", Name: "Litecoin"},
	}, nil, nil))
	return h
}

func newTestDetectService(h *catalog.Holder, prices PriceHistorian, renderer *mockRenderer, related RelatedFinder, cache RedisClient) *DetectService {
	return NewDetectService(testTracer, h, prices, renderer, related, cache, 10, 2)
}

func TestDetectEndToEndSingleMention(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin")
	renderer := &mockRenderer{url: "https://quickchart.io/chart/render/abc"}
	svc := newTestDetectService(readyHolder(), prices, renderer, &mockRelated{}, nil)

	records, err := svc.Detect(context.Background(), "By Bitcoin the design to make cars.", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.ID != "bitcoin" || r.Name != "Bitcoin" {
		t.Fatalf("unexpected record identity: %+v", r)
	}
	if len(r.Matches) != 1 || r.Matches[0] != (domain.Span{Start: 3, End: 10}) {
		t.Fatalf("unexpected matches: %+v", r.Matches)
	}
	if len(r.Prices) != 3 {
		t.Fatalf("expected price series on record, got %d points", len(r.Prices))
	}
	if r.Chart == nil || r.Chart.URL != renderer.url || r.Chart.Source != "CoinMarketCap.com" {
		t.Fatalf("unexpected chart: %+v", r.Chart)
	}
	if !strings.HasPrefix(r.Chart.Caption, "Bitcoin Closing Prices from ") {
		t.Fatalf("unexpected caption: %q", r.Chart.Caption)
	}
}

func TestDetectNoMentionsIsEmptyNotError(t *testing.T) {
	t.Parallel()

	svc := newTestDetectService(readyHolder(), newMockHistorian(), &mockRenderer{}, nil, nil)

	records, err := svc.Detect(context.Background(), "nothing to see here", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil result, got %+v", records)
	}
}

func TestDetectInvalidLimit(t *testing.T) {
	t.Parallel()

	svc := newTestDetectService(readyHolder(), newMockHistorian(), &mockRenderer{}, nil, nil)
	if _, err := svc.Detect(context.Background(), "bitcoin", 0); !errors.Is(err, detect.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestDetectBeforeCatalogReady(t *testing.T) {
	t.Parallel()

	svc := newTestDetectService(catalog.NewHolder(), newMockHistorian(), &mockRenderer{}, nil, nil)
	if _, err := svc.Detect(context.Background(), "bitcoin", 3); !errors.Is(err, catalog.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestDetectIsolatesPerItemFailures(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin", "ethereum")
	prices.fail["bitcoin"] = true
	svc := newTestDetectService(readyHolder(), prices, &mockRenderer{}, nil, nil)

	records, err := svc.Detect(context.Background(), "bitcoin bitcoin ethereum", 3)
	if err != nil {
		t.Fatalf("failure of one item must not fail the batch: %v", err)
	}
	if len(records) != 1 || records[0].ID != "ethereum" {
		t.Fatalf("expected only the healthy record, got %+v", records)
	}
}

func TestDetectChartFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin")
	svc := newTestDetectService(readyHolder(), prices, &mockRenderer{err: errors.New("render timeout")}, nil, nil)

	records, err := svc.Detect(context.Background(), "bitcoin", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Chart != nil {
		t.Fatalf("expected record without chart, got %+v", records)
	}
}

func TestDetectRelatedFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin")
	svc := newTestDetectService(readyHolder(), prices, &mockRenderer{}, &mockRelated{err: errors.New("quota")}, nil)

	records, err := svc.Detect(context.Background(), "bitcoin", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Related != nil {
		t.Fatalf("expected record with empty related list, got %+v", records)
	}
}

func TestDetectPreservesRankOrder(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin", "ethereum", "litecoin")
	svc := newTestDetectService(readyHolder(), prices, &mockRenderer{}, nil, nil)

	// litecoin mentioned 3x, ethereum 2x, bitcoin 1x
	text := "litecoin litecoin litecoin ethereum ethereum bitcoin"
	records, err := svc.Detect(context.Background(), text, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"litecoin", "ethereum", "bitcoin"}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], r.ID)
		}
	}
}

func TestDetectLimitTruncates(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin", "ethereum", "litecoin")
	svc := newTestDetectService(readyHolder(), prices, &mockRenderer{}, nil, nil)

	records, err := svc.Detect(context.Background(), "litecoin litecoin ethereum bitcoin", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "litecoin" {
		t.Fatalf("expected only the top currency, got %+v", records)
	}
}

func TestDetectMemoizesRankedFindings(t *testing.T) {
	t.Parallel()

	prices := newMockHistorian("bitcoin")
	cache := newFakeRedis()
	svc := newTestDetectService(readyHolder(), prices, &mockRenderer{}, nil, cache)

	if _, err := svc.Detect(context.Background(), "bitcoin", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.data) != 1 {
		t.Fatalf("expected ranked findings cached, got %d keys", len(cache.data))
	}

	// Second call resolves findings from the cache; results stay identical.
	records, err := svc.Detect(context.Background(), "bitcoin", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "bitcoin" {
		t.Fatalf("unexpected cached result: %+v", records)
	}
}

func TestDetectCacheKeyedByLimit(t *testing.T) {
	t.Parallel()

	a := detectCacheKey("bitcoin", 1)
	b := detectCacheKey("bitcoin", 3)
	c := detectCacheKey("ethereum", 1)
	if a == b || a == c {
		t.Fatalf("cache keys must differ by text and limit: %s, %s, %s", a, b, c)
	}
}
