// Package fetch holds the upstream clients the search pipeline fans out to.
// Each client performs a single GET with the caller's timeout, no retries;
// callers treat every returned error as "no data" and degrade.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// WikipediaClient reads plain-text page summaries from the Wikipedia REST API.
type WikipediaClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewWikipediaClient(httpClient *http.Client, baseURL string) *WikipediaClient {
	return &WikipediaClient{httpClient: httpClient, baseURL: baseURL}
}

// Summary returns the extract paragraph of the page titled company, or "" when
// the page has no extract. The company name is path-escaped as-is; Wikipedia
// resolves near-miss titles on its side.
func (c *WikipediaClient) Summary(ctx context.Context, company string) (string, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(company)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build summary request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summary request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}

	return payload.Extract, nil
}
