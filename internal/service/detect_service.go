package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"coin-radar/internal/catalog"
	"coin-radar/internal/chart"
	"coin-radar/internal/detect"
	"coin-radar/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const chartSource = "CoinMarketCap.com"

// PriceHistorian provides the price series for one currency.
type PriceHistorian interface {
	History(ctx context.Context, slug string) ([]domain.PricePoint, error)
}

// RelatedFinder provides similar-currency enrichment. Failures are always
// swallowed; a detection never degrades because enrichment did.
type RelatedFinder interface {
	Related(ctx context.Context, name string) ([]domain.RelatedCoin, error)
}

// DetectService runs the full pipeline: scan text against the catalog, rank
// by mention count, and assemble one ResultRecord per ranked currency.
type DetectService struct {
	tracer   trace.Tracer
	catalogs *catalog.Holder
	prices   PriceHistorian
	renderer chart.Renderer
	related  RelatedFinder
	redis    RedisClient
	cacheTTL time.Duration
	workers  int
}

func NewDetectService(
	tracer trace.Tracer,
	catalogs *catalog.Holder,
	prices PriceHistorian,
	renderer chart.Renderer,
	related RelatedFinder,
	redisClient RedisClient,
	cacheTTLHours int,
	workers int,
) *DetectService {
	if cacheTTLHours <= 0 {
		cacheTTLHours = 10
	}
	if workers <= 0 {
		workers = 4
	}
	return &DetectService{
		tracer:   tracer,
		catalogs: catalogs,
		prices:   prices,
		renderer: renderer,
		related:  related,
		redis:    redisClient,
		cacheTTL: time.Duration(cacheTTLHours) * time.Hour,
		workers:  workers,
	}
}

// Detect scans text and returns at most limit assembled records, most
// mentioned first. Returns catalog.ErrNotReady before the first catalog
// build and detect.ErrInvalidLimit for a non-positive limit.
func (s *DetectService) Detect(ctx context.Context, text string, limit int) ([]domain.ResultRecord, error) {
	ctx, span := s.tracer.Start(ctx, "detect-service.detect")
	defer span.End()
	span.SetAttributes(attribute.Int("text_len", len(text)), attribute.Int("limit", limit))

	if limit < 1 {
		return nil, detect.ErrInvalidLimit
	}
	cat, err := s.catalogs.Get()
	if err != nil {
		return nil, err
	}

	ranked, err := s.rankedFindings(ctx, text, limit, cat)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		log.Println("Did not find cryptocurrency in input. Returning empty.")
		return []domain.ResultRecord{}, nil
	}
	log.Printf("Found %d currencie(s). Assembling record(s).", len(ranked))

	return s.assemble(ctx, ranked), nil
}

// rankedFindings memoizes the scan+rank stage in Redis keyed on the exact
// input. Detection is a pure function of (text, catalog), so a cached entry
// is valid until the catalog refresh TTL passes.
func (s *DetectService) rankedFindings(ctx context.Context, text string, limit int, cat *catalog.Catalog) ([]domain.Finding, error) {
	key := detectCacheKey(text, limit)

	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached []domain.Finding
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			log.Printf("redis detect cache read error: %v", err)
		}
	}

	findings := detect.FindMentions(text, cat)
	ranked, err := detect.Rank(findings, limit)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(ranked); err == nil {
			if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				log.Printf("redis detect cache write error: %v", err)
			}
		}
	}
	return ranked, nil
}

// assemble builds one record per ranked finding with a bounded worker pool.
// Records come back in rank order; a currency whose price fetch fails is
// omitted, chart and related failures only null the affected field.
func (s *DetectService) assemble(ctx context.Context, ranked []domain.Finding) []domain.ResultRecord {
	ctx, span := s.tracer.Start(ctx, "detect-service.assemble")
	defer span.End()

	slots := make([]*domain.ResultRecord, len(ranked))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, finding := range ranked {
		wg.Add(1)
		go func(i int, finding domain.Finding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			slots[i] = s.assembleOne(ctx, finding)
		}(i, finding)
	}
	wg.Wait()

	records := make([]domain.ResultRecord, 0, len(ranked))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

func (s *DetectService) assembleOne(ctx context.Context, finding domain.Finding) *domain.ResultRecord {
	series, err := s.prices.History(ctx, finding.Slug)
	if err != nil {
		log.Printf("omitting %s: price history fetch failed: %v", finding.Slug, err)
		return nil
	}

	record := &domain.ResultRecord{
		ID:      finding.Slug,
		Name:    finding.Name,
		Matches: finding.Spans,
		Prices:  series,
	}

	caption := chart.Caption(finding.Name, series)
	url, err := s.renderer.Render(ctx, caption, series)
	if err != nil {
		log.Printf("chart render failed for %s: %v", finding.Slug, err)
	} else if url != "" {
		record.Chart = &domain.Chart{URL: url, Caption: caption, Source: chartSource}
	}

	if s.related != nil {
		coins, err := s.related.Related(ctx, finding.Name)
		if err != nil {
			log.Printf("related lookup failed for %s: %v", finding.Slug, err)
		} else {
			record.Related = coins
		}
	}
	return record
}

func detectCacheKey(text string, limit int) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("detect:%s:%d", hex.EncodeToString(sum[:]), limit)
}
