// Package news fetches recent articles about a company from NewsAPI.
package news

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

// DefaultBaseURL is the NewsAPI host
const DefaultBaseURL = "https://newsapi.org"

// ErrNoAPIKey is returned when no NewsAPI key is configured
var ErrNoAPIKey = errors.New("news API key not set")

// Article is one news item
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

// Client calls the NewsAPI everything endpoint
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for apiKey
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Everything returns the newest articles matching query. A response without an
// articles field yields an empty slice.
func (c *Client) Everything(ctx context.Context, query string) ([]Article, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sortBy", "publishedAt")
	u := strings.TrimRight(c.BaseURL, "/") + "/v2/everything?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("news request failed: HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || body.Status == "error" {
		return nil, fmt.Errorf("news request failed: HTTP %d: %s %s", resp.StatusCode, body.Code, body.Message)
	}

	articles := make([]Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}

// FormatText renders articles as the plain-text feed shown in the news panel
func FormatText(articles []Article) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "%s\n\n%s\n\n[Read more](%s)\n\n\n", a.Title, a.Description, a.URL)
	}
	return b.String()
}
