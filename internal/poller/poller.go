// Package poller drives the fetch → filter → forward → record cycle and its
// schedule. A cycle is the unit of work; the seen-store is the only shared state
// between cycles and the sole gate against duplicate forwarding.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oharling/newsrelay/internal/core"
	"github.com/oharling/newsrelay/internal/dedupe"
	"github.com/oharling/newsrelay/internal/feed"
	"github.com/oharling/newsrelay/internal/feed/filter"
	"github.com/oharling/newsrelay/internal/notify"
)

// CycleSummary reports the outcome of one polling cycle.
type CycleSummary struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Pruned      int       `json:"pruned"`
	Fetched     int       `json:"fetched"`
	Filtered    int       `json:"filtered"`
	New         int       `json:"new"`
	Forwarded   int       `json:"forwarded"`
	Failed      int       `json:"failed"`
}

type Config struct {
	Source   feed.Source
	Store    dedupe.SeenStore
	Notifier notify.Notifier
	// Filter is optional; when nil all fetched items proceed to dedup.
	Filter *filter.Filter
	Logger *slog.Logger
	// OpTimeout bounds each fetch, store, and delivery operation.
	OpTimeout time.Duration
	// Now is overridable for tests.
	Now func() time.Time
}

type Poller struct {
	source    feed.Source
	store     dedupe.SeenStore
	notifier  notify.Notifier
	filter    *filter.Filter
	logger    *slog.Logger
	opTimeout time.Duration
	now       func() time.Time
	tracer    trace.Tracer
}

func New(cfg Config) (*Poller, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("item source is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("seen store is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Poller{
		source:    cfg.Source,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		filter:    cfg.Filter,
		logger:    cfg.Logger,
		opTimeout: cfg.OpTimeout,
		now:       cfg.Now,
		tracer:    otel.Tracer("newsrelay/poller"),
	}, nil
}

// RunCycle performs one complete pass: prune the store, fetch candidates, then
// forward and record each item not already seen. Items are evaluated in the
// order the source provides them. Running the cycle twice against an unchanged
// source forwards nothing on the second pass.
func (p *Poller) RunCycle(ctx context.Context) (CycleSummary, error) {
	startedAt := p.now().UTC()
	cycleID := fmt.Sprintf("cycle-%d", startedAt.UnixNano())
	logger := p.logger.With("cycle_id", cycleID)
	ctx = core.WithCycleID(core.WithLogger(ctx, logger), cycleID)

	ctx, span := p.tracer.Start(ctx, "poller.RunCycle")
	defer span.End()

	summary := CycleSummary{StartedAt: startedAt}

	pruned, err := p.pruneStore(ctx, startedAt)
	if err != nil {
		// Prune failures are tolerated; retention catches up next cycle.
		logger.Warn("store prune failed", "error", err)
	} else {
		summary.Pruned = pruned
		if pruned > 0 {
			logger.Info("pruned seen records", "removed", pruned)
		}
	}

	items, err := p.fetchItems(ctx)
	if err != nil {
		summary.CompletedAt = p.now().UTC()
		p.recordSpan(span, summary)
		return summary, fmt.Errorf("fetch items: %w", err)
	}
	summary.Fetched = len(items)

	if p.filter != nil {
		kept, err := p.filter.Apply(items)
		if err != nil {
			logger.Warn("filter failed; forwarding unfiltered items", "error", err)
		} else {
			summary.Filtered = len(items) - len(kept)
			items = kept
		}
	}

	for _, item := range items {
		seen, err := p.containsItem(ctx, item.ID)
		if err != nil {
			// Fail closed. Treating a store outage as "not seen" would forward
			// every candidate again.
			summary.CompletedAt = p.now().UTC()
			p.recordSpan(span, summary)
			return summary, fmt.Errorf("seen lookup for %q: %w", item.ID, err)
		}
		if seen {
			continue
		}
		summary.New++

		if err := p.deliverItem(ctx, item); err != nil {
			summary.Failed++
			logger.Warn("delivery failed; item will be retried next cycle", "item_id", item.ID, "error", err)
			continue
		}
		summary.Forwarded++

		if err := p.recordItem(ctx, item.ID); err != nil {
			// The item went out but was not recorded, so it may be forwarded
			// again on a later cycle.
			logger.Error("recording delivered item failed", "item_id", item.ID, "error", err)
		}
	}

	summary.CompletedAt = p.now().UTC()
	p.recordSpan(span, summary)
	logger.Info("cycle complete",
		"fetched", summary.Fetched,
		"filtered", summary.Filtered,
		"new", summary.New,
		"forwarded", summary.Forwarded,
		"failed", summary.Failed,
		"pruned", summary.Pruned,
	)
	return summary, nil
}

func (p *Poller) pruneStore(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	return p.store.Prune(ctx, now)
}

func (p *Poller) fetchItems(ctx context.Context) ([]feed.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	return p.source.Fetch(ctx)
}

func (p *Poller) containsItem(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	return p.store.Contains(ctx, id)
}

func (p *Poller) deliverItem(ctx context.Context, item feed.Item) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	return p.notifier.Deliver(ctx, item)
}

func (p *Poller) recordItem(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()
	return p.store.Record(ctx, id, p.now().UTC())
}

func (p *Poller) recordSpan(span trace.Span, summary CycleSummary) {
	span.SetAttributes(
		attribute.Int("cycle.pruned", summary.Pruned),
		attribute.Int("cycle.fetched", summary.Fetched),
		attribute.Int("cycle.filtered", summary.Filtered),
		attribute.Int("cycle.new", summary.New),
		attribute.Int("cycle.forwarded", summary.Forwarded),
		attribute.Int("cycle.failed", summary.Failed),
	)
}
