package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/businessinsight/backend/internal/fetch"
)

const newsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"Acme" - Google News</title>
<item>
<title>Acme beats expectations</title>
<link>https://example.com/a</link>
<pubDate>Mon, 12 Aug 2024 10:30:00 GMT</pubDate>
<description>Quarterly results out.</description>
<source url="https://reuters.example.com">Reuters</source>
</item>
<item>
<title>Acme opens new plant</title>
<link>https://example.com/b</link>
<pubDate>Sun, 11 Aug 2024 08:00:00 GMT</pubDate>
<description>Expansion continues.</description>
</item>
<item>
<title>Acme hires CFO</title>
<link>https://example.com/c</link>
<pubDate>Sat, 10 Aug 2024 12:00:00 GMT</pubDate>
<description>Leadership update.</description>
<source url="https://ft.example.com">FT</source>
</item>
</channel>
</rss>`

func newFeedServer(t *testing.T, body string) (*httptest.Server, *http.Request) {
	t.Helper()

	captured := &http.Request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func TestNewsMapsFeedItems(t *testing.T) {
	srv, _ := newFeedServer(t, newsFeed)
	client := fetch.NewNewsClient(srv.Client(), srv.URL)

	items, err := client.News(context.Background(), "Acme", "", 10)
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0]
	require.Equal(t, "Acme", first.Company)
	require.Equal(t, "Acme beats expectations", first.Title)
	require.Equal(t, "https://example.com/a", first.URL)
	require.Equal(t, "Reuters", first.Source)
	require.Equal(t, "Mon, 12 Aug 2024 10:30:00 GMT", first.PublishedAt, "pubDate must stay the raw feed string")
	require.Equal(t, "Quarterly results out.", first.Summary)
	require.NotNil(t, first.Tags)
	require.Empty(t, first.Tags)

	require.Equal(t, "Google News", items[1].Source, "items without a source element fall back")
	require.Equal(t, "FT", items[2].Source)
}

func TestNewsQueryParameters(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		srv, captured := newFeedServer(t, newsFeed)
		client := fetch.NewNewsClient(srv.Client(), srv.URL)

		_, err := client.News(context.Background(), "Acme Corp", "", 0)
		require.NoError(t, err)

		query := captured.URL.Query()
		require.Equal(t, "Acme Corp", query.Get("q"))
		require.Equal(t, "en-US", query.Get("hl"))
		require.Equal(t, "US", query.Get("gl"))
		require.Equal(t, "US:en", query.Get("ceid"))
	})

	t.Run("explicit locale", func(t *testing.T) {
		srv, captured := newFeedServer(t, newsFeed)
		client := fetch.NewNewsClient(srv.Client(), srv.URL)

		_, err := client.News(context.Background(), "Acme", "de-DE", 0)
		require.NoError(t, err)
		require.Equal(t, "de-DE", captured.URL.Query().Get("hl"))
	})
}

func TestNewsRespectsLimit(t *testing.T) {
	srv, _ := newFeedServer(t, newsFeed)
	client := fetch.NewNewsClient(srv.Client(), srv.URL)

	items, err := client.News(context.Background(), "Acme", "", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Acme beats expectations", items[0].Title)
	require.Equal(t, "Acme opens new plant", items[1].Title)
}

func TestNewsMalformedItemAbortsWholeFeed(t *testing.T) {
	// The second item breaks XML at the token level, so even valid siblings
	// must not survive as partial results.
	broken := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>feed</title>
<item>
<title>Good one</title>
<link>https://example.com/a</link>
</item>
<item>
<title>Bad < one</title>
<link>https://example.com/b</link>
</item>
<item>
<title>Another good one</title>
<link>https://example.com/c</link>
</item>
</channel>
</rss>`

	srv, _ := newFeedServer(t, broken)
	client := fetch.NewNewsClient(srv.Client(), srv.URL)

	items, err := client.News(context.Background(), "Acme", "", 10)
	require.Error(t, err)
	require.Empty(t, items)
}

func TestNewsUpstreamErrorYieldsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := fetch.NewNewsClient(srv.Client(), srv.URL)

	items, err := client.News(context.Background(), "Acme", "", 10)
	require.Error(t, err)
	require.Empty(t, items)
}
