package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/businessinsight/backend/internal/config"
	"github.com/businessinsight/backend/internal/dedupe"
	"github.com/businessinsight/backend/internal/docstore"
	"github.com/businessinsight/backend/internal/logger"
	"github.com/businessinsight/backend/internal/models"
)

// rawCompanyNews is the shape producers publish to the news topic.
type rawCompanyNews struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Summary     string `json:"summary"`
}

type newsWriter interface {
	CreateDocumentWithID(ctx context.Context, collection, id string, doc any) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := docstore.New(cfg.ElasticsearchAddr, log)
	if err != nil {
		log.Error("init document store", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.New(cfg.DedupeCapacity, cfg.DedupeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		// Messages that cannot be processed are logged and skipped; the
		// offset commits either way. There is no retry and no dead letter.
		if err := processMessage(ctx, log, store, cache, msg); err != nil {
			log.Warn("skipping message",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func processMessage(ctx context.Context, log *slog.Logger, store newsWriter, cache *dedupe.Cache, msg kafka.Message) error {
	var payload rawCompanyNews
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	company := strings.TrimSpace(payload.Company)
	if company == "" {
		return errors.New("company is required")
	}

	title := strings.TrimSpace(payload.Title)
	link := strings.TrimSpace(payload.URL)
	if title == "" && link == "" {
		return errors.New("empty news payload")
	}

	source := strings.TrimSpace(payload.Source)
	if source == "" {
		source = "unknown"
	}

	item := models.NewsItem{
		Company:     company,
		Title:       title,
		URL:         link,
		Source:      source,
		PublishedAt: normalizePublishedAt(payload.PublishedAt),
		Summary:     strings.TrimSpace(payload.Summary),
		Tags:        []string{},
	}

	id := documentID(company, title, link)
	if cache.Contains(id) {
		log.Debug("duplicate news", slog.String("id", id))
		return nil
	}

	if err := store.CreateDocumentWithID(ctx, docstore.CollectionNews, id, item); err != nil {
		return fmt.Errorf("store news: %w", err)
	}

	// Marked only after a successful write so a failed one still lands on
	// redelivery.
	cache.Add(id)
	log.Info("stored news",
		slog.String("id", id),
		slog.String("company", company),
		slog.String("title", title),
	)
	return nil
}

// documentID hashes the fields that identify one story for one company, so a
// redelivered message overwrites its own document instead of duplicating it.
func documentID(company, title, url string) string {
	sum := sha1.Sum([]byte(company + "|" + title + "|" + url))
	return hex.EncodeToString(sum[:])
}

// publishedAtLayouts are the timestamp shapes producers are known to send;
// anything else is stored as-is.
var publishedAtLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func normalizePublishedAt(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range publishedAtLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
	}
	return raw
}
