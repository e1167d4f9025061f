package models

import "time"

// SearchQuery is the body of a POST /api/search request. Company is the only
// required field; ticker and locale refine the price and news fetches.
type SearchQuery struct {
	Company string `json:"company"`
	Ticker  string `json:"ticker,omitempty"`
	Locale  string `json:"locale,omitempty"`
}

// PriceBar is one daily OHLCV row. Bars are computed per request and never
// reach the store.
type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// NewsItem is one normalized headline, stored one document per item in the
// "news" collection. PublishedAt keeps whatever string the upstream supplied.
// Tags is always empty; no classification is performed on this path.
type NewsItem struct {
	Company     string   `json:"company"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"published_at"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
}

// InsightSnapshot holds the fields of an insight that get persisted. Each
// search appends a fresh snapshot document; there is no upsert.
type InsightSnapshot struct {
	Company       string           `json:"company"`
	Summary       string           `json:"summary"`
	Financials    map[string]any   `json:"financials"`
	MarketTrends  []string         `json:"market_trends"`
	Competitors   []map[string]any `json:"competitors"`
	Pricing       map[string]any   `json:"pricing"`
	Projections   map[string]any   `json:"projections"`
	LastRefreshed time.Time        `json:"last_refreshed"`
}

// Insight is the full search response: the persisted snapshot plus the
// ephemeral price history. Read-back endpoints always return Prices empty.
type Insight struct {
	InsightSnapshot
	Prices []PriceBar `json:"prices"`
}
