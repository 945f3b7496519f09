package fundamentals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAlphaVantageURL is the Alpha Vantage query endpoint
const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

// ErrNoAPIKey is returned when the Alpha Vantage key is not configured
var ErrNoAPIKey = errors.New("alpha vantage API key not set")

// Overview is the subset of the OVERVIEW function the dashboard uses
type Overview struct {
	Symbol       string `json:"Symbol"`
	Name         string `json:"Name"`
	Description  string `json:"Description"`
	IPODate      string `json:"IPODate"`
	ProfitMargin string `json:"ProfitMargin"`
	EPS          string `json:"EPS"`
	PERatio      string `json:"PERatio"`

	// Set instead of data when the free tier is throttled
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// AlphaVantageClient calls the Alpha Vantage company overview
type AlphaVantageClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewAlphaVantageClient creates a client for apiKey
func NewAlphaVantageClient(apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{
		APIKey:     apiKey,
		BaseURL:    DefaultAlphaVantageURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Overview fetches the company overview for symbol
func (c *AlphaVantageClient) Overview(ctx context.Context, symbol string) (*Overview, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("function", "OVERVIEW")
	q.Set("symbol", symbol)
	q.Set("apikey", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage overview %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage overview %s: HTTP %d", symbol, resp.StatusCode)
	}

	var ov Overview
	if err := json.NewDecoder(resp.Body).Decode(&ov); err != nil {
		return nil, fmt.Errorf("failed to parse alpha vantage overview: %w", err)
	}
	if msg := strings.TrimSpace(ov.Note + " " + ov.Information); msg != "" {
		return nil, fmt.Errorf("alpha vantage overview %s: %s", symbol, msg)
	}
	if ov.Symbol == "" {
		return nil, fmt.Errorf("alpha vantage overview %s: %w", symbol, ErrNotFound)
	}
	return &ov, nil
}

// orNA maps empty and "None" overview values to NotAvailable
func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return NotAvailable
	}
	return s
}
