package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/businessinsight/backend/internal/models"
)

const defaultPriceLimit = 60

// PriceClient downloads daily OHLCV bars from the Stooq CSV export.
type PriceClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewPriceClient(httpClient *http.Client, baseURL string) *PriceClient {
	return &PriceClient{httpClient: httpClient, baseURL: baseURL}
}

// PriceHistory returns up to limit most recent daily bars for ticker, oldest
// first. An empty ticker is the expected no-data path: it returns an empty
// list without touching the network. Stooq answers unknown tickers with an
// HTML page or an empty export, both of which also read as no data. Rows that
// fail to parse are skipped individually.
func (c *PriceClient) PriceHistory(ctx context.Context, ticker string, limit int) ([]models.PriceBar, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return []models.PriceBar{}, nil
	}
	if limit <= 0 {
		limit = defaultPriceLimit
	}

	params := url.Values{}
	params.Set("s", strings.ToLower(ticker))
	params.Set("i", "d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch price history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price history returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read price history: %w", err)
	}

	body := strings.TrimSpace(string(raw))
	if body == "" || strings.HasPrefix(body, "<!DOCTYPE") {
		return []models.PriceBar{}, nil
	}

	lines := strings.Split(body, "\n")
	if len(lines) < 2 {
		return []models.PriceBar{}, nil
	}

	// Drop the Date,Open,High,Low,Close,Volume header and keep the trailing
	// window; the export is ordered oldest to newest.
	rows := lines[1:]
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	bars := make([]models.PriceBar, 0, len(rows))
	for _, row := range rows {
		bar, ok := parseBar(strings.TrimSpace(row))
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseBar(row string) (models.PriceBar, bool) {
	fields := strings.Split(row, ",")
	if len(fields) != 6 {
		return models.PriceBar{}, false
	}

	open, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return models.PriceBar{}, false
	}
	high, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return models.PriceBar{}, false
	}
	low, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return models.PriceBar{}, false
	}
	closePrice, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return models.PriceBar{}, false
	}

	// Stooq occasionally reports fractional volume; truncate like the
	// float-then-int conversion upstream consumers expect.
	volume, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return models.PriceBar{}, false
	}

	return models.PriceBar{
		Date:   fields[0],
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: int64(volume),
	}, true
}
