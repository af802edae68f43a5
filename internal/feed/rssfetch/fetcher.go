// Package rssfetch fetches candidate items from an RSS or Atom feed.
package rssfetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/oharling/newsrelay/internal/feed"
	"github.com/oharling/newsrelay/internal/retry"
)

type Fetcher struct {
	feedURL string
	limit   int
	parser  *gofeed.Parser
}

func New(feedURL string, limit int, timeout time.Duration, userAgent string) (*Fetcher, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	client := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Fetcher{feedURL: feedURL, limit: limit, parser: parser}, nil
}

func (f *Fetcher) Fetch(ctx context.Context) ([]feed.Item, error) {
	var parsed *gofeed.Feed
	err := retry.Do(ctx, retry.Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		result, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
		if err != nil {
			return err
		}
		parsed = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.feedURL, err)
	}

	limit := f.limit
	if limit <= 0 {
		limit = len(parsed.Items)
	}

	items := make([]feed.Item, 0, limit)
	for _, entry := range parsed.Items {
		if len(items) >= limit {
			break
		}
		item := feed.Item{
			ID:          entry.GUID,
			Title:       entry.Title,
			URL:         entry.Link,
			Description: entry.Description,
		}
		if item.ID == "" {
			item.ID = entry.Link
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = *entry.UpdatedParsed
		} else {
			item.PublishedAt = time.Now().UTC()
		}
		items = append(items, item)
	}
	return items, nil
}
