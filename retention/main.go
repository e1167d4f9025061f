package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/businessinsight/backend/internal/config"
	"github.com/businessinsight/backend/internal/docstore"
	"github.com/businessinsight/backend/internal/logger"
)

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// An unreachable store skips runs instead of stopping the process; the
	// next tick probes again.
	store, err := docstore.New(cfg.ElasticsearchAddr, log)
	if err != nil {
		log.Warn("init document store failed, runs will be skipped", slog.Any("err", err))
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			log.Warn("document store unreachable", slog.String("addr", cfg.ElasticsearchAddr), slog.Any("err", err))
		}
		cancel()
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
		slog.Any("collections", cfg.Collections),
	)

	runOnce(ctx, log, store, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, store, cfg)
		}
	}
}

func runOnce(ctx context.Context, log *slog.Logger, store *docstore.Client, cfg *config.Retention) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, collection := range cfg.Collections {
		deleted, err := store.DeleteOlderThan(subCtx, collection, cfg.MaxAge, cfg.BatchSize)
		if err != nil {
			log.Warn("retention run failed (will retry on next interval)",
				slog.String("collection", collection),
				slog.Any("err", err),
			)
			continue
		}

		if deleted > 0 {
			log.Info("retention run completed",
				slog.String("collection", collection),
				slog.Int64("deleted", deleted),
			)
		} else {
			log.Debug("no expired documents", slog.String("collection", collection))
		}
	}
}
