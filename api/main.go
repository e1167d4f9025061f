package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/businessinsight/backend/internal/config"
	"github.com/businessinsight/backend/internal/docstore"
	"github.com/businessinsight/backend/internal/fetch"
	"github.com/businessinsight/backend/internal/insight"
	"github.com/businessinsight/backend/internal/logger"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	// An unreachable store is a degraded mode, not a startup failure:
	// searches still work, persistence and read-back go quiet.
	store, err := docstore.New(cfg.ElasticsearchAddr, log)
	if err != nil {
		log.Warn("init document store failed, serving without persistence", slog.Any("err", err))
	}
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		log.Warn("document store unreachable", slog.String("addr", cfg.ElasticsearchAddr), slog.Any("err", err))
	}
	cancelPing()

	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	wikipedia := fetch.NewWikipediaClient(httpClient, cfg.WikipediaBaseURL)
	news := fetch.NewNewsClient(httpClient, cfg.NewsFeedBaseURL)
	prices := fetch.NewPriceClient(httpClient, cfg.PriceCSVBaseURL)

	assembler := insight.NewAssembler(log, wikipedia, news, prices, store)

	srv := &server{log: log, cfg: cfg, assembler: assembler, store: store, news: news}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", srv.handleRoot)
	r.Get("/test", srv.handleTest)
	r.Post("/api/search", srv.handleSearch)
	r.Get("/api/insights", srv.handleInsights)
	r.Get("/api/news", srv.handleNews)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// The search handler waits on the upstream fetches.
		WriteTimeout: cfg.FetchTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
