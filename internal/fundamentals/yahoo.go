package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultYahooURL is the Yahoo Finance API host
	DefaultYahooURL = "https://query1.finance.yahoo.com"

	userAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	maxRetries = 3
)

// retryDelay is the backoff step between attempts
var retryDelay = 500 * time.Millisecond

// SummaryModules are the quoteSummary modules requested for every symbol
var SummaryModules = []string{
	"price",
	"summaryDetail",
	"defaultKeyStatistics",
	"financialData",
	"quoteType",
	"assetProfile",
	"incomeStatementHistory",
	"balanceSheetHistory",
	"cashflowStatementHistory",
}

// YahooClient fetches quoteSummary data
type YahooClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewYahooClient creates a client against the public Yahoo host
func NewYahooClient() *YahooClient {
	return &YahooClient{
		BaseURL:    DefaultYahooURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Summary fetches the quoteSummary modules for symbol
func (c *YahooClient) Summary(ctx context.Context, symbol string) (*Summary, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(symbol), strings.Join(SummaryModules, ","))

	data, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("quoteSummary %s: %w", symbol, err)
	}

	var resp SummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse quoteSummary for %s: %w", symbol, err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("quoteSummary %s: %w: %s", symbol, ErrNotFound, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quoteSummary %s: %w", symbol, ErrNotFound)
	}
	return &resp.QuoteSummary.Result[0], nil
}

// get retries on transport errors, 429s and 5xx responses
func (c *YahooClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		case resp.StatusCode == http.StatusNotFound:
			// Yahoo still sends an error envelope on 404
			return body, nil
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return body, nil
	}
	return nil, fmt.Errorf("max retries: %w", lastErr)
}
