package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/businessinsight/backend/internal/config"
	"github.com/businessinsight/backend/internal/docstore"
	"github.com/businessinsight/backend/internal/insight"
	"github.com/businessinsight/backend/internal/models"
)

// insightHistoryLimit bounds how many stored snapshots a read-back returns.
const insightHistoryLimit = 3

// defaultNewsReadLimit applies when /api/news gets no usable limit parameter.
const defaultNewsReadLimit = 10

// The server consumes narrow views of the assembler, the store, and the live
// news client so handler tests can stand in stubs for any of them.

type searcher interface {
	Search(ctx context.Context, query models.SearchQuery) (models.Insight, error)
}

type documentReader interface {
	Ping(ctx context.Context) error
	Collections(ctx context.Context) ([]string, error)
	GetDocuments(ctx context.Context, collection string, filter map[string]string, limit int) ([]json.RawMessage, error)
}

type newsFetcher interface {
	News(ctx context.Context, company, locale string, limit int) ([]models.NewsItem, error)
}

type server struct {
	log       *slog.Logger
	cfg       *config.API
	assembler searcher
	store     documentReader
	news      newsFetcher
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"product": "BusinessInsight API",
		"status":  "ok",
	})
}

// handleTest reports store connectivity for manual debugging. It always
// answers 200; the payload carries the status.
func (s *server) handleTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	diag := map[string]any{
		"backend":           "running",
		"store":             "not available",
		"store_addr":        s.cfg.ElasticsearchAddr,
		"connection_status": "not connected",
		"collections":       []string{},
	}

	if err := s.store.Ping(ctx); err != nil {
		diag["store"] = "error: " + err.Error()
		writeJSON(w, http.StatusOK, diag)
		return
	}

	diag["store"] = "available"
	diag["connection_status"] = "connected"

	names, err := s.store.Collections(ctx)
	if err != nil {
		diag["store"] = "connected but listing failed: " + err.Error()
		writeJSON(w, http.StatusOK, diag)
		return
	}

	if len(names) > 10 {
		names = names[:10]
	}
	diag["collections"] = names
	diag["store"] = "connected and working"

	writeJSON(w, http.StatusOK, diag)
}

// handleSearch runs the aggregation pipeline. The response is 200 even when
// every upstream source and the store failed; the only client error is a
// missing company name.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Company is required"})
		return
	}

	result, err := s.assembler.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, insight.ErrEmptyCompany) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Company is required"})
			return
		}
		s.log.Error("search failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleInsights returns up to the three most recently stored snapshots for
// an exact company name. Store trouble reads as no results, and prices are
// never stored, so returned records always carry an empty price list.
func (s *server) handleInsights(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(r.URL.Query().Get("company"))
	if company == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "company query parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	docs, err := s.store.GetDocuments(ctx, docstore.CollectionInsight, map[string]string{"company": company}, insightHistoryLimit)
	if err != nil {
		s.log.Warn("read insights", slog.String("company", company), slog.Any("err", err))
	}

	results := make([]models.Insight, 0, len(docs))
	for _, doc := range docs {
		var snapshot models.InsightSnapshot
		if err := json.Unmarshal(doc, &snapshot); err != nil {
			s.log.Warn("decode stored insight", slog.Any("err", err))
			continue
		}
		results = append(results, models.Insight{InsightSnapshot: snapshot, Prices: []models.PriceBar{}})
	}

	writeJSON(w, http.StatusOK, results)
}

// handleNews serves stored news for a company, falling back to a live feed
// fetch when the store has nothing or is unavailable. The stored and live
// paths may disagree on the published_at format; both are passed through
// untouched.
func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(r.URL.Query().Get("company"))
	if company == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "company query parameter is required"})
		return
	}
	limit := positiveInt(r.URL.Query().Get("limit"), defaultNewsReadLimit)

	readCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	docs, err := s.store.GetDocuments(readCtx, docstore.CollectionNews, map[string]string{"company": company}, limit)
	if err != nil {
		s.log.Warn("read news", slog.String("company", company), slog.Any("err", err))
	}

	stored := make([]models.NewsItem, 0, len(docs))
	for _, doc := range docs {
		var item models.NewsItem
		if err := json.Unmarshal(doc, &item); err != nil {
			s.log.Warn("decode stored news item", slog.Any("err", err))
			continue
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}
		stored = append(stored, item)
	}
	if len(stored) > 0 {
		writeJSON(w, http.StatusOK, stored)
		return
	}

	items, err := s.news.News(r.Context(), company, "", limit)
	if err != nil {
		s.log.Warn("live news fetch", slog.String("company", company), slog.Any("err", err))
	}
	if items == nil {
		items = []models.NewsItem{}
	}

	writeJSON(w, http.StatusOK, items)
}

// positiveInt parses raw as a positive integer, falling back when it is
// missing, malformed, or non-positive.
func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
