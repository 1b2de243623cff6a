package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"coin-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// HistoryProvider fetches a daily price series from the upstream market-data
// API.
type HistoryProvider interface {
	Historic(ctx context.Context, slug string, start, stop time.Time) ([]domain.PricePoint, error)
}

// PriceStore is the durable price-point cache backed by Postgres.
type PriceStore interface {
	GetRange(ctx context.Context, slug string, from, to time.Time) ([]domain.PricePoint, error)
	UpsertPoints(ctx context.Context, slug string, points []domain.PricePoint) error
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// PriceService resolves a currency's recent price history through three
// layers: Redis (hot), Postgres (warm), provider (cold). The fetched series
// is shared by chart rendering and the response body, so each currency is
// fetched at most once per assembly.
type PriceService struct {
	tracer   trace.Tracer
	provider HistoryProvider
	store    PriceStore
	redis    RedisClient
	lookback time.Duration
	cacheTTL time.Duration
}

func NewPriceService(
	tracer trace.Tracer,
	provider HistoryProvider,
	store PriceStore,
	redisClient RedisClient,
	lookbackDays int,
	cacheTTLHours int,
) *PriceService {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	if cacheTTLHours <= 0 {
		cacheTTLHours = 5
	}
	return &PriceService{
		tracer:   tracer,
		provider: provider,
		store:    store,
		redis:    redisClient,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		cacheTTL: time.Duration(cacheTTLHours) * time.Hour,
	}
}

// History returns the default-lookback daily series for a currency, oldest
// first.
func (s *PriceService) History(ctx context.Context, slug string) ([]domain.PricePoint, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.history")
	defer span.End()

	stop := time.Now().UTC().Truncate(24 * time.Hour)
	start := stop.Add(-s.lookback)
	key := fmt.Sprintf("prices:%s:%s:%s", slug, start.Format("20060102"), stop.Format("20060102"))

	if s.redis != nil {
		cached, err := s.getSeriesCache(ctx, key)
		if err != nil {
			log.Printf("redis cache read error for %s: %v", slug, err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	if s.store != nil {
		points, err := s.store.GetRange(ctx, slug, start, stop)
		if err != nil {
			log.Printf("price store read error for %s: %v", slug, err)
		} else if seriesFresh(points, stop) {
			if s.redis != nil {
				_ = s.setSeriesCache(ctx, key, points)
			}
			return points, nil
		}
	}

	points, err := s.provider.Historic(ctx, slug, start, stop)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.UpsertPoints(ctx, slug, points); err != nil {
			log.Printf("price store write error for %s: %v", slug, err)
		}
	}
	if s.redis != nil {
		if err := s.setSeriesCache(ctx, key, points); err != nil {
			log.Printf("redis cache write error for %s: %v", slug, err)
		}
	}
	return points, nil
}

// seriesFresh reports whether stored points already cover the window end.
// The provider lags up to a day, so a series ending within 48h of stop is
// considered complete.
func seriesFresh(points []domain.PricePoint, stop time.Time) bool {
	if len(points) == 0 {
		return false
	}
	last := points[len(points)-1].Date
	return stop.Sub(last) <= 48*time.Hour
}

func (s *PriceService) setSeriesCache(ctx context.Context, key string, points []domain.PricePoint) error {
	data, err := json.Marshal(points)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, s.cacheTTL).Err()
}

func (s *PriceService) getSeriesCache(ctx context.Context, key string) ([]domain.PricePoint, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var points []domain.PricePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}
