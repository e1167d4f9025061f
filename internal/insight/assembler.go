// Package insight implements the search pipeline: validate the query, fan
// out to the three upstream sources, compose the response record, and
// best-effort persist it.
package insight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/businessinsight/backend/internal/docstore"
	"github.com/businessinsight/backend/internal/models"
)

// ErrEmptyCompany rejects queries whose company name trims to nothing. It is
// the only error Search ever returns.
var ErrEmptyCompany = errors.New("company is required")

// Fixed text for the sections no open data source covers.
const (
	financialsNote  = "Financial metrics require premium data sources. Showing available open data only."
	monitoringTrend = "Monitoring public sources for mentions and sentiment"
	pricingNotes    = "Pricing analysis requires domain-specific sources."
	neutralOutlook  = "Neutral"
	baseAssumption  = "Based on recent public signals only"
)

// The assembler consumes one method from each upstream client and one from
// the store, so any of them can be stubbed in tests.

type SummaryFetcher interface {
	Summary(ctx context.Context, company string) (string, error)
}

type NewsFetcher interface {
	News(ctx context.Context, company, locale string, limit int) ([]models.NewsItem, error)
}

type PriceFetcher interface {
	PriceHistory(ctx context.Context, ticker string, limit int) ([]models.PriceBar, error)
}

type DocumentWriter interface {
	CreateDocument(ctx context.Context, collection string, doc any) error
}

// Assembler turns one search query into one Insight record.
type Assembler struct {
	log       *slog.Logger
	summaries SummaryFetcher
	news      NewsFetcher
	prices    PriceFetcher
	store     DocumentWriter
}

func NewAssembler(log *slog.Logger, summaries SummaryFetcher, news NewsFetcher, prices PriceFetcher, store DocumentWriter) *Assembler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{log: log, summaries: summaries, news: news, prices: prices, store: store}
}

// queryLog mirrors the document written to the companyquery collection: the
// raw ask, kept for usage analysis. The ticker is not logged.
type queryLog struct {
	Company string `json:"company"`
	Locale  string `json:"locale"`
}

// Search validates query, gathers the upstream data, and returns the
// assembled Insight. Upstream failures degrade to empty sections and
// persistence failures are logged and swallowed, so a caller only ever sees
// ErrEmptyCompany.
func (a *Assembler) Search(ctx context.Context, query models.SearchQuery) (models.Insight, error) {
	company := strings.TrimSpace(query.Company)
	if company == "" {
		return models.Insight{}, ErrEmptyCompany
	}

	var (
		summary   string
		newsItems []models.NewsItem
		bars      []models.PriceBar
	)

	// The three sources are independent; each failure degrades its own
	// section without touching the others. Limits of 0 let each client
	// apply its default (8 headlines, 60 bars).
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := a.summaries.Summary(gctx, company)
		if err != nil {
			a.log.Warn("summary fetch failed", slog.String("company", company), slog.Any("err", err))
			return nil
		}
		summary = text
		return nil
	})
	g.Go(func() error {
		items, err := a.news.News(gctx, company, query.Locale, 0)
		if err != nil {
			a.log.Warn("news fetch failed", slog.String("company", company), slog.Any("err", err))
			return nil
		}
		newsItems = items
		return nil
	})
	g.Go(func() error {
		history, err := a.prices.PriceHistory(gctx, query.Ticker, 0)
		if err != nil {
			a.log.Warn("price fetch failed", slog.String("company", company), slog.Any("err", err))
			return nil
		}
		bars = history
		return nil
	})
	_ = g.Wait() // every goroutine swallows its own failure

	if newsItems == nil {
		newsItems = []models.NewsItem{}
	}
	if bars == nil {
		bars = []models.PriceBar{}
	}
	if summary == "" {
		summary = fmt.Sprintf("No summary available for %s.", company)
	}

	snapshot := models.InsightSnapshot{
		Company: company,
		Summary: summary,
		Financials: map[string]any{
			"revenue":       nil,
			"profit_margin": nil,
			"valuation":     nil,
			"note":          financialsNote,
		},
		MarketTrends: []string{
			fmt.Sprintf("Media coverage: %d recent articles discovered", len(newsItems)),
			monitoringTrend,
		},
		Competitors: []map[string]any{},
		Pricing: map[string]any{
			"model": "Unknown",
			"notes": pricingNotes,
		},
		Projections: map[string]any{
			"outlook":     neutralOutlook,
			"assumptions": []string{baseAssumption},
		},
		LastRefreshed: time.Now().UTC(),
	}

	a.persist(ctx, snapshot, newsItems, query.Locale)

	return models.Insight{InsightSnapshot: snapshot, Prices: bars}, nil
}

// persist appends the snapshot, each news item, and the raw query to their
// collections. The writes are independent: a partial write is an accepted
// outcome, and no failure reaches the caller.
func (a *Assembler) persist(ctx context.Context, snapshot models.InsightSnapshot, items []models.NewsItem, locale string) {
	if err := a.store.CreateDocument(ctx, docstore.CollectionInsight, snapshot); err != nil {
		a.log.Warn("store insight snapshot", slog.String("company", snapshot.Company), slog.Any("err", err))
	}

	for _, item := range items {
		if err := a.store.CreateDocument(ctx, docstore.CollectionNews, item); err != nil {
			a.log.Warn("store news item",
				slog.String("company", snapshot.Company),
				slog.String("url", item.URL),
				slog.Any("err", err),
			)
		}
	}

	if err := a.store.CreateDocument(ctx, docstore.CollectionQueries, queryLog{Company: snapshot.Company, Locale: locale}); err != nil {
		a.log.Warn("store company query", slog.String("company", snapshot.Company), slog.Any("err", err))
	}
}
