package bot

import (
	"strings"
	"testing"
	"time"

	"coin-radar/internal/domain"
	"coin-radar/internal/provider"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	StartTelegramBot(nil, nil, nil, 3)
}

func TestFormatDetectReplyEmpty(t *testing.T) {
	t.Parallel()

	got := formatDetectReply(nil)
	if got != "No cryptocurrency mentions found." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestFormatDetectReply(t *testing.T) {
	t.Parallel()

	results := []domain.ResultRecord{
		{
			Name:    "Bitcoin",
			Matches: []domain.Span{{Start: 0, End: 7}, {Start: 10, End: 17}},
			Prices: []domain.PricePoint{
				{Date: time.Date(2018, 8, 29, 0, 0, 0, 0, time.UTC), Close: 7000.5},
				{Date: time.Date(2018, 8, 30, 0, 0, 0, 0, time.UTC), Close: 7012.25},
			},
			Chart: &domain.Chart{URL: "https://quickchart.io/chart/render/abc"},
		},
		{
			Name:    "Ethereum",
			Matches: []domain.Span{{Start: 20, End: 28}},
		},
	}

	got := formatDetectReply(results)

	if !strings.Contains(got, "Found 2 mentioned currencies:") {
		t.Errorf("missing header in %q", got)
	}
	if !strings.Contains(got, "1. Bitcoin (2 mentions), latest close $7012.25") {
		t.Errorf("missing bitcoin line in %q", got)
	}
	if !strings.Contains(got, "https://quickchart.io/chart/render/abc") {
		t.Errorf("missing chart URL in %q", got)
	}
	if !strings.Contains(got, "2. Ethereum (1 mentions)") {
		t.Errorf("missing ethereum line in %q", got)
	}
}

func TestFormatQuoteReply(t *testing.T) {
	t.Parallel()

	cur := domain.Currency{ID: 1, Slug: "bitcoin", Symbol: "BTC", Name: "Bitcoin"}
	quote := &provider.Quote{PriceUSD: 7012.25, Change24hPct: -1.5, Volume24h: 4200000000}

	got := formatQuoteReply(cur, quote)

	if !strings.Contains(got, "Bitcoin (BTC)") {
		t.Errorf("missing title in %q", got)
	}
	if !strings.Contains(got, "Price: $7012.25") {
		t.Errorf("missing price in %q", got)
	}
	if !strings.Contains(got, "24h Change: -1.50%") {
		t.Errorf("missing change in %q", got)
	}
	if !strings.Contains(got, "24h Volume: $4200000000") {
		t.Errorf("missing volume in %q", got)
	}
}
