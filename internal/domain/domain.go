package domain

import "time"

// Currency is a single catalog entry as reported by the listing provider.
type Currency struct {
	ID     int    `json:"id"`
	Slug   string `json:"slug"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Span is one match occurrence inside the scanned text, as character offsets.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Finding collects every match occurrence for one currency in one text.
// Spans are appended in scan-pass order: singular, then plural, then symbol.
type Finding struct {
	Slug     string `json:"cryptocurrency"`
	Name     string `json:"name"`
	Sentence string `json:"sentence"`
	Spans    []Span `json:"findings"`
}

// PricePoint is one day of price history for a currency.
type PricePoint struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	MarketCap float64   `json:"market_cap"`
}

// Chart describes a rendered, hosted price chart.
type Chart struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Source  string `json:"source"`
}

// RelatedCoin is a similarity-enrichment entry for a detected currency.
type RelatedCoin struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ResultRecord is the final per-currency output of a detection request.
type ResultRecord struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Matches []Span        `json:"matches"`
	Prices  []PricePoint  `json:"prices"`
	Chart   *Chart        `json:"chart,omitempty"`
	Related []RelatedCoin `json:"related,omitempty"`
}
