package dedupe

import (
	"fmt"
	"time"
)

// RetentionPolicy bounds a seen-store over time. MaxAge > 0 drops records older
// than the age threshold. MaxEntries > 0 evicts oldest-first down to TargetEntries
// once the store holds MaxEntries records or more. Either or both may be set; a
// zero policy disables pruning entirely.
type RetentionPolicy struct {
	MaxAge        time.Duration
	MaxEntries    int
	TargetEntries int
}

func (p RetentionPolicy) Validate() error {
	if p.MaxAge < 0 {
		return fmt.Errorf("retention max age must be >= 0")
	}
	if p.MaxEntries < 0 || p.TargetEntries < 0 {
		return fmt.Errorf("retention entry bounds must be >= 0")
	}
	if p.MaxEntries > 0 && p.TargetEntries > p.MaxEntries {
		return fmt.Errorf("retention target entries (%d) must not exceed max entries (%d)", p.TargetEntries, p.MaxEntries)
	}
	if p.TargetEntries > 0 && p.MaxEntries == 0 {
		return fmt.Errorf("retention target entries requires max entries")
	}
	return nil
}

// ageCutoff returns the timestamp before which records expire, if the age policy
// is active.
func (p RetentionPolicy) ageCutoff(now time.Time) (time.Time, bool) {
	if p.MaxAge <= 0 {
		return time.Time{}, false
	}
	return now.Add(-p.MaxAge), true
}

// evictCount returns how many of the oldest records must go for the given store
// size. Eviction triggers once size reaches MaxEntries and removes down to the
// target (MaxEntries/2 when TargetEntries is unset).
func (p RetentionPolicy) evictCount(size int) int {
	if p.MaxEntries <= 0 || size < p.MaxEntries {
		return 0
	}
	target := p.TargetEntries
	if target <= 0 {
		target = p.MaxEntries / 2
	}
	if size <= target {
		return 0
	}
	return size - target
}
