package dedupe

import (
	"context"
	"time"
)

// SeenStore is the durable witness of item ids already forwarded. It is the sole
// gate against duplicate forwarding: Contains must surface backing-store faults as
// errors rather than defaulting to "not seen".
type SeenStore interface {
	// Contains reports whether a non-pruned record with the id exists. It has no
	// side effects.
	Contains(ctx context.Context, id string) (bool, error)
	// Record inserts a seen record if absent. Recording an existing id is a no-op,
	// never an error.
	Record(ctx context.Context, id string, at time.Time) error
	// Prune applies the store's retention policy and returns the number of records
	// removed.
	Prune(ctx context.Context, now time.Time) (int, error)
	// Size returns the current record count.
	Size(ctx context.Context) (int, error)
	Close() error
}
