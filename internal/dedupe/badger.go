package dedupe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps seen records in an embedded Badger key-value database. Keys
// are item ids and values are the binary-encoded first-seen timestamps.
type BadgerStore struct {
	db     *badger.DB
	policy RetentionPolicy
}

func NewBadgerStore(path string, policy RetentionPolicy) (*BadgerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db, policy: policy}, nil
}

func (s *BadgerStore) Contains(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query seen id: %w", err)
	}
	return true, nil
}

func (s *BadgerStore) Record(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(id))
		if err == nil {
			// Already recorded; keep the original first-seen timestamp.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		value, err := at.UTC().MarshalBinary()
		if err != nil {
			return err
		}
		return txn.Set([]byte(id), value)
	})
	if err != nil {
		return fmt.Errorf("record seen id: %w", err)
	}
	return nil
}

func (s *BadgerStore) Prune(ctx context.Context, now time.Time) (int, error) {
	type record struct {
		id string
		at time.Time
	}

	var records []record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key())
			var at time.Time
			err := item.Value(func(val []byte) error {
				return at.UnmarshalBinary(val)
			})
			if err != nil {
				return fmt.Errorf("decode record %q: %w", id, err)
			}
			records = append(records, record{id: id, at: at})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan seen ids: %w", err)
	}

	var expired []string
	if cutoff, ok := s.policy.ageCutoff(now.UTC()); ok {
		remaining := records[:0]
		for _, r := range records {
			if r.at.Before(cutoff) {
				expired = append(expired, r.id)
				continue
			}
			remaining = append(remaining, r)
		}
		records = remaining
	}

	evict := s.policy.evictCount(len(records))
	if evict > 0 {
		sort.Slice(records, func(i, j int) bool {
			if records[i].at.Equal(records[j].at) {
				return records[i].id < records[j].id
			}
			return records[i].at.Before(records[j].at)
		})
		for _, r := range records[:evict] {
			expired = append(expired, r.id)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, id := range expired {
			if err := txn.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete pruned ids: %w", err)
	}
	return len(expired), nil
}

func (s *BadgerStore) Size(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count seen ids: %w", err)
	}
	return count, nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
