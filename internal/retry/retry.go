package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy bounds how Do retries a failing operation.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 2 * time.Second
	}
	if p.Jitter <= 0 {
		p.Jitter = 100 * time.Millisecond
	}
	return p
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context is
// cancelled. The delay doubles between attempts, plus jitter, capped at MaxDelay.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	policy = policy.withDefaults()

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == policy.Attempts {
			break
		}
		if err := sleep(ctx, delay, policy.Jitter, policy.MaxDelay); err != nil {
			return err
		}
		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return fmt.Errorf("after %d attempts: %w", policy.Attempts, lastErr)
}

func sleep(ctx context.Context, delay, jitter, maxDelay time.Duration) error {
	d := delay + time.Duration(rand.Int63n(int64(jitter)))
	if d > maxDelay {
		d = maxDelay
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
