package app

import (
	"context"
	"fmt"
	"time"

	"wf_reminder_bot/internal/domain/cycle"
)

// CycleTracker turns the world-state feed into resolved region statuses.
type CycleTracker struct {
	source  WorldStateSource
	regions cycle.Regions
	now     func() time.Time
}

func NewCycleTracker(source WorldStateSource, regions cycle.Regions) *CycleTracker {
	return &CycleTracker{source: source, regions: regions, now: time.Now}
}

func (t *CycleTracker) Regions() cycle.Regions {
	return t.regions
}

// Statuses returns the current status of every region the feed reports,
// in catalog order. Regions with missing or malformed data are left out.
func (t *CycleTracker) Statuses(ctx context.Context) ([]cycle.Status, error) {
	sections, err := t.source.WorldState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycleUnavailable, err)
	}
	now := t.now().Unix()
	out := make([]cycle.Status, 0, len(t.regions))
	for _, region := range t.regions {
		if st, ok := region.Status(sections[region.Section], now); ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// Status returns the current status of one region by key.
func (t *CycleTracker) Status(ctx context.Context, regionKey string) (cycle.Status, error) {
	statuses, err := t.Statuses(ctx)
	if err != nil {
		return cycle.Status{}, err
	}
	for _, st := range statuses {
		if st.Region == regionKey {
			return st, nil
		}
	}
	return cycle.Status{}, fmt.Errorf("%w: no data for %s", ErrCycleUnavailable, regionKey)
}
