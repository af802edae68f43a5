package dedupe

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process seen-store for single-instance deployments that
// can tolerate losing dedup state on restart.
type MemoryStore struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	policy RetentionPolicy
}

func NewMemoryStore(policy RetentionPolicy) (*MemoryStore, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &MemoryStore{
		seen:   make(map[string]time.Time),
		policy: policy,
	}, nil
}

func (s *MemoryStore) Contains(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok, nil
}

func (s *MemoryStore) Record(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = at.UTC()
	}
	return nil
}

func (s *MemoryStore) Prune(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	if cutoff, ok := s.policy.ageCutoff(now.UTC()); ok {
		for id, at := range s.seen {
			if at.Before(cutoff) {
				delete(s.seen, id)
				removed++
			}
		}
	}

	evict := s.policy.evictCount(len(s.seen))
	if evict > 0 {
		type record struct {
			id string
			at time.Time
		}
		records := make([]record, 0, len(s.seen))
		for id, at := range s.seen {
			records = append(records, record{id: id, at: at})
		}
		sort.Slice(records, func(i, j int) bool {
			if records[i].at.Equal(records[j].at) {
				return records[i].id < records[j].id
			}
			return records[i].at.Before(records[j].at)
		})
		for _, r := range records[:evict] {
			delete(s.seen, r.id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
