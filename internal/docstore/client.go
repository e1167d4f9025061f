// Package docstore wraps Elasticsearch as a plain document store: one index
// per named collection, documents created on the fly, reads filtered by exact
// field matches. Writes are best-effort by contract — every caller treats a
// returned error as non-fatal, and reads from an unavailable store count as
// "no results".
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// Collection names shared by the api, worker, and retention binaries.
const (
	CollectionInsight = "insight"
	CollectionNews    = "news"
	CollectionQueries = "companyquery"
)

// storedAtField is stamped onto every document at write time. It orders
// "most recently stored" reads and gives retention a uniform age field; it is
// never part of a response shape.
const storedAtField = "stored_at"

// ErrUnavailable reports that the store handle is degraded: the process kept
// running after the client failed to initialize.
var ErrUnavailable = errors.New("document store unavailable")

// Client talks to one Elasticsearch cluster. A nil *Client is a valid
// degraded handle; every method returns ErrUnavailable instead of panicking.
type Client struct {
	es  *elasticsearch.Client
	log *slog.Logger
}

// New builds a store client for addr. The connection itself is lazy; use
// Ping to probe availability.
func New(addr string, logger *slog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, log: logger}, nil
}

// Ping checks whether the store answers at all.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.es == nil {
		return ErrUnavailable
	}

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("store ping failed: %s", res.Status())
	}

	return nil
}

// Collections lists the non-system indices, for diagnostics.
func (c *Client) Collections(ctx context.Context) ([]string, error) {
	if c == nil || c.es == nil {
		return nil, ErrUnavailable
	}

	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index"),
	)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("list collections failed: %s", strings.TrimSpace(string(body)))
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode collections response: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.HasPrefix(row.Index, ".") {
			continue
		}
		names = append(names, row.Index)
	}

	return names, nil
}

// CreateDocument writes doc into collection under a fresh random ID. Repeated
// writes of equal documents accumulate; there is no upsert or unique key.
func (c *Client) CreateDocument(ctx context.Context, collection string, doc any) error {
	return c.CreateDocumentWithID(ctx, collection, uuid.NewString(), doc)
}

// CreateDocumentWithID writes doc under the given ID, replacing any previous
// document with the same ID in that collection.
func (c *Client) CreateDocumentWithID(ctx context.Context, collection, id string, doc any) error {
	if c == nil || c.es == nil {
		return ErrUnavailable
	}
	if collection == "" {
		return fmt.Errorf("collection name cannot be empty")
	}

	payload, err := stampStoredAt(doc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      collection,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create document failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// GetDocuments returns up to limit documents from collection whose fields
// exactly match filter, most recently stored first. A collection nobody has
// written to yet reads as empty rather than as an error.
func (c *Client) GetDocuments(ctx context.Context, collection string, filter map[string]string, limit int) ([]json.RawMessage, error) {
	if c == nil || c.es == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 10
	}

	boolQuery := map[string]any{}
	if len(filter) > 0 {
		filters := make([]map[string]any, 0, len(filter))
		for field, value := range filter {
			filters = append(filters, map[string]any{
				"term": map[string]any{
					field + ".keyword": value,
				},
			})
		}
		boolQuery["filter"] = filters
	} else {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	body := map[string]any{
		"size":  limit,
		"query": map[string]any{"bool": boolQuery},
		"sort": []map[string]any{
			{storedAtField: map[string]any{"order": "desc", "unmapped_type": "date"}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(collection),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []json.RawMessage{}, nil
	}
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("get documents failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]json.RawMessage, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	return docs, nil
}

// DeleteOlderThan removes documents stored more than maxAge ago using batched
// delete-by-query, looping until a batch comes back short.
func (c *Client) DeleteOlderThan(ctx context.Context, collection string, maxAge time.Duration, batchSize int) (int64, error) {
	if c == nil || c.es == nil {
		return 0, ErrUnavailable
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	totalDeleted := int64(0)

	for {
		body := map[string]any{
			"query": map[string]any{
				"range": map[string]any{
					storedAtField: map[string]any{"lte": cutoff},
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return totalDeleted, fmt.Errorf("marshal delete body: %w", err)
		}

		res, err := c.es.DeleteByQuery(
			[]string{collection},
			bytes.NewReader(payload),
			c.es.DeleteByQuery.WithContext(ctx),
			c.es.DeleteByQuery.WithWaitForCompletion(true),
			c.es.DeleteByQuery.WithConflicts("proceed"),
			c.es.DeleteByQuery.WithScrollSize(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		if res.StatusCode == http.StatusNotFound {
			res.Body.Close()
			return totalDeleted, nil
		}
		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return totalDeleted, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
		}

		var parsed struct {
			Deleted int64 `json:"deleted"`
		}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			res.Body.Close()
			return totalDeleted, fmt.Errorf("decode delete response: %w", err)
		}
		res.Body.Close()

		totalDeleted += parsed.Deleted

		if parsed.Deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}

// stampStoredAt rebuilds doc as a JSON object with the write timestamp added.
func stampStoredAt(doc any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	obj[storedAtField] = now.Format(time.RFC3339Nano)

	return json.Marshal(obj)
}
