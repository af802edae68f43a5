package filter

import (
	"testing"

	"github.com/oharling/newsrelay/internal/feed"
)

func TestFilterDropsMatchingItems(t *testing.T) {
	f, err := New(`title.value contains "sponsored"`, ActionDrop)
	if err != nil {
		t.Fatalf("failed to build filter: %v", err)
	}

	kept, err := f.Apply([]feed.Item{
		{ID: "a", Title: "sponsored: buy now"},
		{ID: "b", Title: "real news"},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(kept) != 1 || kept[0].ID != "b" {
		t.Fatalf("unexpected kept items: %v", kept)
	}
}

func TestFilterKeepsMatchingItems(t *testing.T) {
	f, err := New(`title.length > 0`, ActionKeep)
	if err != nil {
		t.Fatalf("failed to build filter: %v", err)
	}

	kept, err := f.Apply([]feed.Item{
		{ID: "a", Title: "has a title"},
		{ID: "b", Title: ""},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(kept) != 1 || kept[0].ID != "a" {
		t.Fatalf("unexpected kept items: %v", kept)
	}
}

func TestFilterDefaultsToDropAction(t *testing.T) {
	f, err := New(`url == "https://example.com/x"`, "")
	if err != nil {
		t.Fatalf("failed to build filter: %v", err)
	}

	kept, err := f.Apply([]feed.Item{
		{ID: "a", URL: "https://example.com/x"},
		{ID: "b", URL: "https://example.com/y"},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(kept) != 1 || kept[0].ID != "b" {
		t.Fatalf("unexpected kept items: %v", kept)
	}
}

func TestFilterRejectsInvalidRule(t *testing.T) {
	if _, err := New(`title.value ==`, ActionDrop); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestFilterRejectsUnknownAction(t *testing.T) {
	if _, err := New(`true`, Action("purge")); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestFilterRejectsNonBoolRule(t *testing.T) {
	f, err := New(`title.length`, ActionDrop)
	if err != nil {
		t.Fatalf("failed to build filter: %v", err)
	}
	if _, err := f.Apply([]feed.Item{{ID: "a", Title: "x"}}); err == nil {
		t.Fatalf("expected error for non-bool rule result")
	}
}
