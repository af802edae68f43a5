// Package newsapi fetches candidate items from a JSON news endpoint such as the
// CoinGecko news API, which wraps articles in a top-level "data" array.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oharling/newsrelay/internal/feed"
	"github.com/oharling/newsrelay/internal/retry"
)

const DefaultEndpoint = "https://api.coingecko.com/api/v3/news"

type Fetcher struct {
	endpoint  string
	limit     int
	userAgent string
	client    *http.Client
}

type newsResponse struct {
	Data []newsArticle `json:"data"`
}

type newsArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	UpdatedAt   int64  `json:"updated_at"`
}

func New(endpoint string, limit int, timeout time.Duration, userAgent string) *Fetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Fetcher{
		endpoint:  endpoint,
		limit:     limit,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]feed.Item, error) {
	var payload newsResponse
	err := retry.Do(ctx, retry.Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		payload = newsResponse{}
		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch news from %s: %w", f.endpoint, err)
	}

	limit := f.limit
	if limit <= 0 {
		limit = len(payload.Data)
	}

	items := make([]feed.Item, 0, limit)
	for _, article := range payload.Data {
		if len(items) >= limit {
			break
		}
		if article.URL == "" {
			continue
		}
		items = append(items, feed.Item{
			// The endpoint exposes no stable id of its own; the article URL
			// serves as the dedup identity.
			ID:          article.URL,
			Title:       article.Title,
			URL:         article.URL,
			Description: article.Description,
			PublishedAt: time.Unix(article.UpdatedAt, 0).UTC(),
		})
	}
	return items, nil
}
