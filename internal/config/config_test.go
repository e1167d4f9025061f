package config_test

import (
	"testing"
	"time"

	"github.com/businessinsight/backend/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("API_BIND_ADDR", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("WIKIPEDIA_BASE_URL", "")
	t.Setenv("NEWS_FEED_BASE_URL", "")
	t.Setenv("PRICE_CSV_BASE_URL", "")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "0.0.0.0:8000", cfg.BindAddr)
	require.Equal(t, 10*time.Second, cfg.FetchTimeout)
	require.Equal(t, "https://en.wikipedia.org/api/rest_v1/page/summary", cfg.WikipediaBaseURL)
	require.Equal(t, "https://news.google.com/rss/search", cfg.NewsFeedBaseURL)
	require.Equal(t, "https://stooq.com/q/d/l", cfg.PriceCSVBaseURL)
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("WIKIPEDIA_BASE_URL", "http://summaries.test/api")
	t.Setenv("NEWS_FEED_BASE_URL", "http://feed.test/rss")
	t.Setenv("PRICE_CSV_BASE_URL", "http://bars.test/csv")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 3*time.Second, cfg.FetchTimeout)
	require.Equal(t, "http://summaries.test/api", cfg.WikipediaBaseURL)
	require.Equal(t, "http://feed.test/rss", cfg.NewsFeedBaseURL)
	require.Equal(t, "http://bars.test/csv", cfg.PriceCSVBaseURL)
}

func TestLoadAPIBadTimeoutFallsBack(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.FetchTimeout)
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Len(t, cfg.KafkaBrokers, 1)
	require.Equal(t, "kafka:9092", cfg.KafkaBrokers[0])
	require.Equal(t, "company_news", cfg.KafkaTopic)
	require.Equal(t, "news-ingest", cfg.KafkaConsumer)
	require.Equal(t, 10, cfg.BatchSize)
	require.Equal(t, 20000, cfg.DedupeCapacity)
	require.Equal(t, 24*time.Hour, cfg.DedupeTTL)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "acme_news")
	t.Setenv("KAFKA_CONSUMER_GROUP", "acme-ingest")
	t.Setenv("WORKER_BATCH_SIZE", "25")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "7")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "acme_news", cfg.KafkaTopic)
	require.Equal(t, "acme-ingest", cfg.KafkaConsumer)
	require.Equal(t, 25, cfg.BatchSize)
	require.Equal(t, 7, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
}

func TestLoadWorkerRejectsBadBatchSize(t *testing.T) {
	t.Setenv("WORKER_BATCH_SIZE", "-2")

	_, err := config.LoadWorker()
	require.Error(t, err)
	require.Contains(t, err.Error(), "WORKER_BATCH_SIZE")
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("RETENTION_INTERVAL", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")
	t.Setenv("RETENTION_COLLECTIONS", "insight, news")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, []string{"insight", "news"}, cfg.Collections)
}

func TestLoadRetentionDefaultCollections(t *testing.T) {
	t.Setenv("RETENTION_COLLECTIONS", "")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)
	require.Equal(t, []string{"insight", "news", "companyquery"}, cfg.Collections)
}
