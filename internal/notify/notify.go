package notify

import (
	"context"

	"github.com/oharling/newsrelay/internal/feed"
)

// Notifier delivers one item to the configured output channel. Implementations
// may fail transiently; the poller's dedup logic is the only thing preventing
// redundant calls for the same item.
type Notifier interface {
	Deliver(ctx context.Context, item feed.Item) error
}
