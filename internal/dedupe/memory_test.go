package dedupe

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTracksSeenIDs(t *testing.T) {
	store, err := NewMemoryStore(RetentionPolicy{})
	if err != nil {
		t.Fatalf("failed to init memory store: %v", err)
	}

	seen, err := store.Contains(context.Background(), "abc")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if seen {
		t.Fatalf("expected unseen id")
	}

	if err := store.Record(context.Background(), "abc", time.Now()); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	seen, err = store.Contains(context.Background(), "abc")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !seen {
		t.Fatalf("expected seen id")
	}
}

func TestMemoryStoreKeepsFirstSeenTimestamp(t *testing.T) {
	store, err := NewMemoryStore(RetentionPolicy{MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("failed to init memory store: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Record(context.Background(), "abc", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	// A duplicate record must not refresh the original timestamp.
	if err := store.Record(context.Background(), "abc", now); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	removed, err := store.Prune(context.Background(), now)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected original timestamp to expire, removed=%d", removed)
	}
}

func TestMemoryStorePruneWithoutPolicyIsNoop(t *testing.T) {
	store, err := NewMemoryStore(RetentionPolicy{})
	if err != nil {
		t.Fatalf("failed to init memory store: %v", err)
	}
	if err := store.Record(context.Background(), "abc", time.Now().Add(-1000*time.Hour)); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	removed, err := store.Prune(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no removals without a policy, got %d", removed)
	}
}

func TestMemoryStoreEvictsOldestWhenFull(t *testing.T) {
	store, err := NewMemoryStore(RetentionPolicy{MaxEntries: 3, TargetEntries: 1})
	if err != nil {
		t.Fatalf("failed to init memory store: %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"x", "y", "z"} {
		if err := store.Record(context.Background(), id, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	removed, err := store.Prune(context.Background(), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	seen, err := store.Contains(context.Background(), "z")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !seen {
		t.Fatalf("expected most recent id to survive eviction")
	}
	size, err := store.Size(context.Background())
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if size != 1 {
		t.Fatalf("expected size 1 after eviction, got %d", size)
	}
}

func TestRetentionPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		policy  RetentionPolicy
		wantErr bool
	}{
		{name: "zero policy", policy: RetentionPolicy{}},
		{name: "age only", policy: RetentionPolicy{MaxAge: time.Hour}},
		{name: "count only", policy: RetentionPolicy{MaxEntries: 10, TargetEntries: 5}},
		{name: "negative age", policy: RetentionPolicy{MaxAge: -time.Hour}, wantErr: true},
		{name: "target above max", policy: RetentionPolicy{MaxEntries: 3, TargetEntries: 5}, wantErr: true},
		{name: "target without max", policy: RetentionPolicy{TargetEntries: 5}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
