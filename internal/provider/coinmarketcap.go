package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"time"

	"coin-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	coinMarketCapBaseURL   = "https://api.coinmarketcap.com/v2"
	coinMarketCapGraphsURL = "https://graphs2.coinmarketcap.com"
)

var (
	// ErrUnavailable wraps upstream transport or non-OK responses.
	ErrUnavailable = errors.New("coinmarketcap unavailable")
	// ErrUnknownCurrency is returned for identifiers the API does not know.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// CoinMarketCap fetches the currency listing, daily price history, and
// current quotes from the public CoinMarketCap API.
type CoinMarketCap struct {
	client    *http.Client
	baseURL   string
	graphsURL string
	tracer    trace.Tracer
	limiter   *RateLimiter
}

// NewCoinMarketCap creates a provider with built-in rate limiting.
// Rate limited to 10 requests per minute (one token every 6 seconds).
func NewCoinMarketCap(tracer trace.Tracer) *CoinMarketCap {
	return &CoinMarketCap{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   coinMarketCapBaseURL,
		graphsURL: coinMarketCapGraphsURL,
		tracer:    tracer,
		limiter:   NewRateLimiter(10, 6*time.Second),
	}
}

// Listings fetches the full currency listing in upstream order.
func (p *CoinMarketCap) Listings(ctx context.Context) ([]domain.Currency, error) {
	ctx, span := p.tracer.Start(ctx, "coinmarketcap.listings")
	defer span.End()

	body, err := p.doRequest(ctx, p.baseURL+"/listings/")
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	var raw struct {
		Data []struct {
			ID          int    `json:"id"`
			Name        string `json:"name"`
			Symbol      string `json:"symbol"`
			WebsiteSlug string `json:"website_slug"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse listings: %w", err)
	}

	currencies := make([]domain.Currency, 0, len(raw.Data))
	for _, c := range raw.Data {
		currencies = append(currencies, domain.Currency{
			ID:     c.ID,
			Slug:   c.WebsiteSlug,
			Symbol: c.Symbol,
			Name:   c.Name,
		})
	}
	return currencies, nil
}

// Historic fetches the price series for a currency between start and stop and
// buckets the raw points into daily records, oldest first.
func (p *CoinMarketCap) Historic(ctx context.Context, slug string, start, stop time.Time) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "coinmarketcap.historic")
	defer span.End()

	url := fmt.Sprintf("%s/currencies/%s/%d/%d/",
		p.graphsURL, slug, start.UnixMilli(), stop.UnixMilli())

	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", slug, err)
	}

	var raw struct {
		PriceUSD  [][]float64 `json:"price_usd"`
		VolumeUSD [][]float64 `json:"volume_usd"`
		MarketCap [][]float64 `json:"market_cap_by_available_supply"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse history for %s: %w", slug, err)
	}
	if len(raw.PriceUSD) == 0 {
		return nil, fmt.Errorf("history for %s: %w", slug, ErrUnknownCurrency)
	}

	return buildDailyPoints(raw.PriceUSD, raw.VolumeUSD, raw.MarketCap), nil
}

// Quote is the current market snapshot for a currency.
type Quote struct {
	Slug         string  `json:"slug"`
	PriceUSD     float64 `json:"price_usd"`
	Volume24h    float64 `json:"volume_24h"`
	MarketCap    float64 `json:"market_cap"`
	Change24hPct float64 `json:"change_24h_pct"`
}

// Current fetches the current quote for a currency by its numeric ID.
func (p *CoinMarketCap) Current(ctx context.Context, cur domain.Currency) (*Quote, error) {
	ctx, span := p.tracer.Start(ctx, "coinmarketcap.current")
	defer span.End()

	body, err := p.doRequest(ctx, fmt.Sprintf("%s/ticker/%d/", p.baseURL, cur.ID))
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", cur.Slug, err)
	}

	var raw struct {
		Data struct {
			WebsiteSlug string `json:"website_slug"`
			Quotes      map[string]struct {
				Price            float64 `json:"price"`
				Volume24h        float64 `json:"volume_24h"`
				MarketCap        float64 `json:"market_cap"`
				PercentChange24h float64 `json:"percent_change_24h"`
			} `json:"quotes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse quote for %s: %w", cur.Slug, err)
	}

	usd, ok := raw.Data.Quotes["USD"]
	if !ok {
		return nil, fmt.Errorf("quote for %s: %w", cur.Slug, ErrUnknownCurrency)
	}
	return &Quote{
		Slug:         cur.Slug,
		PriceUSD:     usd.Price,
		Volume24h:    usd.Volume24h,
		MarketCap:    usd.MarketCap,
		Change24hPct: usd.PercentChange24h,
	}, nil
}

func (p *CoinMarketCap) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownCurrency
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// buildDailyPoints buckets raw [timestampMs, value] price samples into one
// OHLC point per UTC day, attaching the closest volume and market-cap samples.
func buildDailyPoints(prices, volumes, marketCaps [][]float64) []domain.PricePoint {
	if len(prices) == 0 {
		return nil
	}

	sort.Slice(prices, func(i, j int) bool { return prices[i][0] < prices[j][0] })

	type bucket struct {
		open, high, low, close float64
		date                   time.Time
	}
	buckets := make(map[int64]*bucket)

	for _, pt := range prices {
		if len(pt) < 2 {
			continue
		}
		t := time.UnixMilli(int64(pt[0])).UTC()
		price := pt[1]
		day := t.Truncate(24 * time.Hour)
		key := day.UnixMilli()

		b, exists := buckets[key]
		if !exists {
			buckets[key] = &bucket{open: price, high: price, low: price, close: price, date: day}
			continue
		}
		b.high = math.Max(b.high, price)
		b.low = math.Min(b.low, price)
		b.close = price // last sample in the day becomes the close
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	points := make([]domain.PricePoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		points = append(points, domain.PricePoint{
			Date:      b.date,
			Open:      b.open,
			High:      b.high,
			Low:       b.low,
			Close:     b.close,
			Volume:    closestSample(volumes, k),
			MarketCap: closestSample(marketCaps, k),
		})
	}
	return points
}

func closestSample(samples [][]float64, targetMs int64) float64 {
	var best float64
	minDiff := int64(math.MaxInt64)
	for _, s := range samples {
		if len(s) < 2 {
			continue
		}
		diff := int64(s[0]) - targetMs
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			minDiff = diff
			best = s[1]
		}
	}
	return best
}
