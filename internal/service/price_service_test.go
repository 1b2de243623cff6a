package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"coin-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = v
	case string:
		f.data[key] = []byte(v)
	default:
		return redis.NewStatusResult("", fmt.Errorf("unsupported value type %T", value))
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type mockHistoryProvider struct {
	mu     sync.Mutex
	points map[string][]domain.PricePoint
	err    error
	calls  int
}

func (m *mockHistoryProvider) Historic(ctx context.Context, slug string, start, stop time.Time) ([]domain.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.points[slug], nil
}

type mockPriceStore struct {
	mu       sync.Mutex
	points   map[string][]domain.PricePoint
	upserted map[string]int
}

func newMockPriceStore() *mockPriceStore {
	return &mockPriceStore{points: map[string][]domain.PricePoint{}, upserted: map[string]int{}}
}

func (m *mockPriceStore) GetRange(ctx context.Context, slug string, from, to time.Time) ([]domain.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[slug], nil
}

func (m *mockPriceStore) UpsertPoints(ctx context.Context, slug string, points []domain.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted[slug] += len(points)
	return nil
}

func recentSeries(n int) []domain.PricePoint {
	stop := time.Now().UTC().Truncate(24 * time.Hour)
	points := make([]domain.PricePoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		points = append(points, domain.PricePoint{
			Date:  stop.Add(-time.Duration(i) * 24 * time.Hour),
			Close: float64(100 + i),
		})
	}
	return points
}

func TestPriceServiceRedisCacheHit(t *testing.T) {
	t.Parallel()

	cache := newFakeRedis()
	provider := &mockHistoryProvider{}
	svc := NewPriceService(testTracer, provider, nil, cache, 90, 5)

	stop := time.Now().UTC().Truncate(24 * time.Hour)
	start := stop.Add(-90 * 24 * time.Hour)
	key := fmt.Sprintf("prices:bitcoin:%s:%s", start.Format("20060102"), stop.Format("20060102"))
	series := recentSeries(3)
	data, _ := json.Marshal(series)
	_ = cache.Set(context.Background(), key, data, 0)

	got, err := svc.History(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 cached points, got %d", len(got))
	}
	if provider.calls != 0 {
		t.Fatalf("provider should not be called on cache hit, got %d calls", provider.calls)
	}
}

func TestPriceServiceStoreHitWhenFresh(t *testing.T) {
	t.Parallel()

	store := newMockPriceStore()
	store.points["bitcoin"] = recentSeries(5)
	provider := &mockHistoryProvider{}
	svc := NewPriceService(testTracer, provider, store, newFakeRedis(), 90, 5)

	got, err := svc.History(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 || provider.calls != 0 {
		t.Fatalf("expected fresh store hit without provider call, got %d points, %d calls", len(got), provider.calls)
	}
}

func TestPriceServiceFetchesOnMissAndBackfills(t *testing.T) {
	t.Parallel()

	store := newMockPriceStore()
	provider := &mockHistoryProvider{points: map[string][]domain.PricePoint{"bitcoin": recentSeries(4)}}
	cache := newFakeRedis()
	svc := NewPriceService(testTracer, provider, store, cache, 90, 5)

	got, err := svc.History(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 || provider.calls != 1 {
		t.Fatalf("expected provider fetch, got %d points, %d calls", len(got), provider.calls)
	}
	if store.upserted["bitcoin"] != 4 {
		t.Fatalf("expected 4 points backfilled into store, got %d", store.upserted["bitcoin"])
	}
	if len(cache.data) != 1 {
		t.Fatalf("expected series cached in redis, got %d keys", len(cache.data))
	}
}

func TestPriceServiceStaleStoreTriggersFetch(t *testing.T) {
	t.Parallel()

	store := newMockPriceStore()
	store.points["bitcoin"] = []domain.PricePoint{
		{Date: time.Now().UTC().Add(-30 * 24 * time.Hour), Close: 1},
	}
	provider := &mockHistoryProvider{points: map[string][]domain.PricePoint{"bitcoin": recentSeries(2)}}
	svc := NewPriceService(testTracer, provider, store, nil, 90, 5)

	got, err := svc.History(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 1 || len(got) != 2 {
		t.Fatalf("stale store should fall through to provider, got %d points, %d calls", len(got), provider.calls)
	}
}

func TestPriceServicePropagatesProviderError(t *testing.T) {
	t.Parallel()

	provider := &mockHistoryProvider{err: errors.New("upstream down")}
	svc := NewPriceService(testTracer, provider, nil, nil, 90, 5)

	if _, err := svc.History(context.Background(), "bitcoin"); err == nil {
		t.Fatal("expected provider error")
	}
}
