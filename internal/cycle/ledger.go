package cycle

import (
	"errors"
	"sort"

	"wealthpillar/internal/core"
)

// CurrentOpenPeriod returns the earliest period that has not been completed,
// or false when the person has no open period tracked.
func CurrentOpenPeriod(p core.Person) (core.Period, bool) {
	for _, period := range p.Periods {
		if period.IsOpen() {
			return period, true
		}
	}
	return core.Period{}, false
}

// OpenPeriod appends a new open period starting at start and re-sorts the
// history. It is a no-op when a period with that start date already exists,
// or when another period is still open: a person has at most one open period
// at any time.
func OpenPeriod(p core.Person, start core.Date) core.Person {
	for _, period := range p.Periods {
		if period.Start.Equal(start.Time) {
			return p
		}
	}
	if _, ok := CurrentOpenPeriod(p); ok {
		return p
	}

	out := p.Clone()
	out.Periods = append(out.Periods, core.NewOpenPeriod(start))
	sort.SliceStable(out.Periods, func(i, j int) bool {
		return out.Periods[i].Start.Before(out.Periods[j].Start.Time)
	})
	return out
}

// ClosePeriod completes the person's current open period at end and opens the
// next one at the following cycle start. When no period is tracked yet, the
// current one is derived from the cycle start day first. When nothing can be
// derived (no cycle start day configured) the person is returned unchanged;
// recording a close for an unconfigured person is not an error.
func (c *Calendar) ClosePeriod(p core.Person, end core.Date) (core.Person, error) {
	out := p.Clone()

	cur, ok := CurrentOpenPeriod(out)
	if !ok {
		if p.CycleStartDay == 0 {
			return p, nil
		}
		w, err := c.CurrentNormalPeriod(p.CycleStartDay, end)
		if err != nil {
			if errors.Is(err, core.ErrInvalidCycleStartDay) {
				return p, nil
			}
			return p, err
		}
		out = OpenPeriod(out, w.Start)
		cur, ok = CurrentOpenPeriod(out)
		if !ok {
			return p, nil
		}
	}

	for i := range out.Periods {
		if out.Periods[i].IsOpen() && out.Periods[i].Start.Equal(cur.Start.Time) {
			out.Periods[i] = core.NewClosedPeriod(cur.Start, end)
			break
		}
	}

	// Rollover: the next cycle starts right after the close.
	if p.CycleStartDay == 0 {
		return out, nil
	}
	next, err := c.NextCycleStart(p.CycleStartDay, end)
	if err != nil {
		return p, err
	}
	return OpenPeriod(out, next), nil
}
