package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common holds the document-store address shared by every binary.
type Common struct {
	ElasticsearchAddr string
}

// API configures the HTTP binary: bind address, upstream endpoints, and the
// per-call fetch timeout.
type API struct {
	Common
	BindAddr         string
	FetchTimeout     time.Duration
	WikipediaBaseURL string
	NewsFeedBaseURL  string
	PriceCSVBaseURL  string
}

// Worker configures the Kafka -> store news ingest binary.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	BatchSize      int
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// Retention configures the snapshot pruning loop.
type Retention struct {
	Common
	Interval    time.Duration
	MaxAge      time.Duration
	BatchSize   int
	Collections []string
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:           loadCommon(),
		BindAddr:         getEnv("API_BIND_ADDR", "0.0.0.0:8000"),
		FetchTimeout:     getDuration("FETCH_TIMEOUT", "10s"),
		WikipediaBaseURL: getEnv("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org/api/rest_v1/page/summary"),
		NewsFeedBaseURL:  getEnv("NEWS_FEED_BASE_URL", "https://news.google.com/rss/search"),
		PriceCSVBaseURL:  getEnv("PRICE_CSV_BASE_URL", "https://stooq.com/q/d/l"),
	}

	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.WikipediaBaseURL == "" {
		return nil, fmt.Errorf("WIKIPEDIA_BASE_URL cannot be empty")
	}
	if c.NewsFeedBaseURL == "" {
		return nil, fmt.Errorf("NEWS_FEED_BASE_URL cannot be empty")
	}
	if c.PriceCSVBaseURL == "" {
		return nil, fmt.Errorf("PRICE_CSV_BASE_URL cannot be empty")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "company_news"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "news-ingest"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC cannot be empty")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.DedupeTTL <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_TTL must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:      loadCommon(),
		Interval:    getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:      getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize:   getInt("RETENTION_BATCH_SIZE", 500),
		Collections: splitAndTrim(getEnv("RETENTION_COLLECTIONS", "insight,news,companyquery")),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}
	if len(c.Collections) == 0 {
		return nil, fmt.Errorf("RETENTION_COLLECTIONS must name at least one collection")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr: getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
