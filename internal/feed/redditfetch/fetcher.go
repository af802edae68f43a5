// Package redditfetch fetches candidate items from one or more subreddits.
package redditfetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/oharling/newsrelay/internal/feed"
	"github.com/oharling/newsrelay/internal/retry"
)

type Fetcher struct {
	client     *goreddit.Client
	initErr    error
	subreddits []string
	limit      int
}

func New(subreddits []string, limit int, timeout time.Duration, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = "newsrelay/0.1"
	}
	httpClient := &http.Client{Timeout: timeout}
	client, err := goreddit.NewReadonlyClient(
		goreddit.WithHTTPClient(httpClient),
		goreddit.WithUserAgent(userAgent),
	)
	return &Fetcher{
		client:     client,
		initErr:    err,
		subreddits: subreddits,
		limit:      limit,
	}
}

func (f *Fetcher) Fetch(ctx context.Context) ([]feed.Item, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	if len(f.subreddits) == 0 {
		return nil, fmt.Errorf("no subreddits configured")
	}

	limit := f.limit
	if limit <= 0 {
		limit = 25
	}

	var posts []*goreddit.Post
	err := retry.Do(ctx, retry.Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		var err error
		posts, _, err = f.client.Subreddit.HotPosts(ctx, strings.Join(f.subreddits, "+"), &goreddit.ListOptions{
			Limit: limit,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch subreddit posts: %w", err)
	}

	items := make([]feed.Item, 0, len(posts))
	for _, post := range posts {
		if post == nil {
			continue
		}
		item := feed.Item{
			ID:          post.FullID,
			Title:       post.Title,
			URL:         post.URL,
			Description: post.Body,
		}
		if post.Created != nil {
			item.PublishedAt = post.Created.Time.UTC()
		}
		items = append(items, item)
	}
	return items, nil
}
