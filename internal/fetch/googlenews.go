package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed/rss"

	"github.com/businessinsight/backend/internal/models"
)

const (
	defaultNewsLocale = "en-US"
	defaultNewsLimit  = 8

	// fallbackSource labels items whose feed entry carries no source element.
	fallbackSource = "Google News"
)

// NewsClient searches the Google News RSS feed for company mentions.
//
// It uses the RSS-specific parser rather than the universal one because the
// mapping needs two RSS-level details: the per-item source element and the
// pubDate string exactly as the feed carries it.
type NewsClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewNewsClient(httpClient *http.Client, baseURL string) *NewsClient {
	return &NewsClient{httpClient: httpClient, baseURL: baseURL}
}

// News returns up to limit headline items mentioning company. locale selects
// the feed language and defaults to en-US; a non-positive limit defaults to 8.
// A parse error anywhere in the document aborts the whole fetch; there are no
// partial results.
func (c *NewsClient) News(ctx context.Context, company, locale string, limit int) ([]models.NewsItem, error) {
	if locale == "" {
		locale = defaultNewsLocale
	}
	if limit <= 0 {
		limit = defaultNewsLimit
	}

	params := url.Values{}
	params.Set("q", company)
	params.Set("hl", locale)
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}

	feed, err := (&rss.Parser{}).Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, entry := range feed.Items {
		if len(items) == limit {
			break
		}

		source := fallbackSource
		if entry.Source != nil && entry.Source.Title != "" {
			source = entry.Source.Title
		}

		items = append(items, models.NewsItem{
			Company:     company,
			Title:       entry.Title,
			URL:         entry.Link,
			Source:      source,
			PublishedAt: entry.PubDate,
			Summary:     entry.Description,
			Tags:        []string{},
		})
	}

	return items, nil
}
