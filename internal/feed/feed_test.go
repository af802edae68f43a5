package feed

import (
	"context"
	"errors"
	"testing"
)

type stubFetcher struct {
	items []Item
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context) ([]Item, error) {
	_ = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func TestMultiSourcePreservesFeedOrder(t *testing.T) {
	source, err := NewMultiSource([]Fetcher{
		&stubFetcher{items: []Item{{ID: "a"}, {ID: "b"}}},
		&stubFetcher{items: []Item{{ID: "c"}}},
	}, false)
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 3 || items[0].ID != "a" || items[1].ID != "b" || items[2].ID != "c" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestMultiSourceFailsWhenFeedFails(t *testing.T) {
	source, err := NewMultiSource([]Fetcher{
		&stubFetcher{items: []Item{{ID: "a"}}},
		&stubFetcher{err: errors.New("feed down")},
	}, false)
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error when a feed fails")
	}
}

func TestMultiSourceAllowsPartialFailures(t *testing.T) {
	source, err := NewMultiSource([]Fetcher{
		&stubFetcher{err: errors.New("feed down")},
		&stubFetcher{items: []Item{{ID: "b"}}},
	}, true)
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestMultiSourceFailsWhenAllFeedsFail(t *testing.T) {
	source, err := NewMultiSource([]Fetcher{
		&stubFetcher{err: errors.New("feed down")},
		&stubFetcher{err: errors.New("also down")},
	}, true)
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error when every feed fails")
	}
}

func TestMultiSourceRequiresFetchers(t *testing.T) {
	if _, err := NewMultiSource(nil, false); err == nil {
		t.Fatalf("expected error for empty fetcher list")
	}
}
