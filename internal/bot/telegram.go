package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"coin-radar/internal/catalog"
	"coin-radar/internal/domain"
	"coin-radar/internal/provider"

	tele "gopkg.in/telebot.v3"
)

// Detector runs the mention-detection pipeline for bot messages.
type Detector interface {
	Detect(ctx context.Context, text string, limit int) ([]domain.ResultRecord, error)
}

// QuoteProvider fetches the current market quote for a currency.
type QuoteProvider interface {
	Current(ctx context.Context, cur domain.Currency) (*provider.Quote, error)
}

func StartTelegramBot(detector Detector, holder *catalog.Holder, quotes QuoteProvider, defaultLimit int) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/detect", func(c tele.Context) error {
		text := strings.TrimSpace(c.Message().Payload)
		if text == "" {
			return c.Send("Usage: /detect <text to scan for cryptocurrency mentions>")
		}
		results, err := detector.Detect(context.Background(), text, defaultLimit)
		if err != nil {
			return c.Send(fmt.Sprintf("Error scanning text: %v", err))
		}
		return c.Send(formatDetectReply(results))
	})

	b.Handle("/price", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /price bitcoin")
		}
		slug := strings.ToLower(args[0])
		cat, err := holder.Get()
		if err != nil {
			return c.Send("Currency catalog is not loaded yet. Try again shortly.")
		}
		cur, ok := cat.BySlug(slug)
		if !ok {
			return c.Send(fmt.Sprintf("Unknown currency: %s", slug))
		}
		quote, err := quotes.Current(context.Background(), cur)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", slug, err))
		}
		return c.Send(formatQuoteReply(cur, quote))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func formatDetectReply(results []domain.ResultRecord) string {
	if len(results) == 0 {
		return "No cryptocurrency mentions found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d mentioned currencies:\n", len(results))
	for i, rec := range results {
		fmt.Fprintf(&sb, "%d. %s (%d mentions)", i+1, rec.Name, len(rec.Matches))
		if n := len(rec.Prices); n > 0 {
			fmt.Fprintf(&sb, ", latest close $%.2f", rec.Prices[n-1].Close)
		}
		if rec.Chart != nil {
			fmt.Fprintf(&sb, "\n   %s", rec.Chart.URL)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatQuoteReply(cur domain.Currency, quote *provider.Quote) string {
	return fmt.Sprintf(
		"%s (%s)\nPrice: $%.2f\n24h Change: %.2f%%\n24h Volume: $%.0f",
		cur.Name, cur.Symbol, quote.PriceUSD, quote.Change24hPct, quote.Volume24h,
	)
}
