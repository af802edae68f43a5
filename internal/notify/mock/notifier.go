package mock

import (
	"context"
	"sync"

	"github.com/oharling/newsrelay/internal/feed"
)

type Notifier struct {
	mu        sync.Mutex
	Delivered []feed.Item
	ErrByID   map[string]error
}

func (n *Notifier) Deliver(ctx context.Context, item feed.Item) error {
	_ = ctx
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.ErrByID[item.ID]; ok {
		return err
	}
	n.Delivered = append(n.Delivered, item)
	return nil
}

// DeliveredIDs returns the ids of delivered items in delivery order.
func (n *Notifier) DeliveredIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.Delivered))
	for _, item := range n.Delivered {
		ids = append(ids, item.ID)
	}
	return ids
}
