package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/oharling/newsrelay/internal/core"
)

// Item is one candidate piece of content offered by a feed. Items are read-only
// views for the duration of a cycle; the relay never mutates them.
type Item struct {
	ID          string
	Title       string
	URL         string
	Description string
	PublishedAt time.Time
}

// Fetcher retrieves the current candidate set from a single feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// Source supplies the full candidate set for one polling cycle.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// MultiSource aggregates the configured feeds into one candidate set, preserving
// configuration order and each feed's own item order.
type MultiSource struct {
	fetchers     []Fetcher
	allowPartial bool
}

// NewMultiSource builds a source over the given fetchers. When allowPartial is
// set, a failing feed is logged and skipped instead of failing the whole fetch;
// the fetch still fails if every feed errors.
func NewMultiSource(fetchers []Fetcher, allowPartial bool) (*MultiSource, error) {
	if len(fetchers) == 0 {
		return nil, fmt.Errorf("at least one feed is required")
	}
	return &MultiSource{fetchers: fetchers, allowPartial: allowPartial}, nil
}

func (s *MultiSource) Fetch(ctx context.Context) ([]Item, error) {
	logger := core.LoggerFromContext(ctx)

	var items []Item
	succeeded := 0
	var lastErr error
	for i, fetcher := range s.fetchers {
		fetched, err := fetcher.Fetch(ctx)
		if err != nil {
			if !s.allowPartial {
				return nil, fmt.Errorf("fetch feed %d: %w", i, err)
			}
			lastErr = err
			logger.Warn("feed fetch failed; continuing with remaining feeds", "feed_index", i, "error", err)
			continue
		}
		succeeded++
		items = append(items, fetched...)
	}
	if succeeded == 0 && lastErr != nil {
		return nil, fmt.Errorf("all feeds failed: %w", lastErr)
	}
	return items, nil
}
