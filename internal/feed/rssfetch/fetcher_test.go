package rssfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <link>https://example.com</link>
    <item>
      <title>First story</title>
      <link>https://example.com/first</link>
      <guid>guid-1</guid>
      <description>First description</description>
      <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second story</title>
      <link>https://example.com/second</link>
      <description>Second description</description>
    </item>
  </channel>
</rss>`

func TestFetcherMapsFeedEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	fetcher, err := New(server.URL, 0, 5*time.Second, "newsrelay-test")
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}

	items, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "guid-1" || items[0].Title != "First story" || items[0].URL != "https://example.com/first" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[0].PublishedAt.IsZero() {
		t.Fatalf("expected published time for first item")
	}
	// An entry without a GUID falls back to its link for identity.
	if items[1].ID != "https://example.com/second" {
		t.Fatalf("unexpected second item id: %q", items[1].ID)
	}
}

func TestFetcherHonorsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	fetcher, err := New(server.URL, 1, 5*time.Second, "newsrelay-test")
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}

	items, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestFetcherRequiresURL(t *testing.T) {
	if _, err := New("", 0, time.Second, ""); err == nil {
		t.Fatalf("expected error for missing feed url")
	}
}
