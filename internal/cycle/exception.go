package cycle

import (
	"sort"

	"wealthpillar/internal/core"
)

// DefaultExceptionRetentionDays is how long an exception stays relevant after
// its trigger date before it is pruned.
const DefaultExceptionRetentionDays = 90

// fallbackWindowDays is the permissive window for persons with no configured
// cycle start day.
const fallbackWindowDays = 30

// Resolution is the outcome of resolving a person's active budget period at a
// reference date.
type Resolution struct {
	Window      Window          `json:"window"`
	IsException bool            `json:"isException"`
	Exception   *core.Exception `json:"-"`
}

// ResolveActivePeriod determines the budget window in effect for the person
// at the reference date. Exceptions are advisory overlays evaluated most
// recent first; the first one whose window contains the reference date wins,
// so a newer exception supersedes older ones. Without a matching exception
// the normal period applies.
//
// A person with no configured cycle start day resolves to a fixed 30-day
// window from the reference date rather than failing.
func (c *Calendar) ResolveActivePeriod(p core.Person, ref core.Date) (Resolution, error) {
	if p.CycleStartDay == 0 {
		return Resolution{
			Window: Window{Start: ref, End: ref.AddDays(fallbackWindowDays)},
		}, nil
	}

	if len(p.Exceptions) > 0 {
		candidates := append([]core.Exception(nil), p.Exceptions...)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].TriggerDate.After(candidates[j].TriggerDate.Time)
		})
		for i := range candidates {
			w, err := c.ExceptionWindow(p.CycleStartDay, candidates[i].TriggerDate)
			if err != nil {
				return Resolution{}, err
			}
			if w.Contains(ref) {
				exc := candidates[i]
				return Resolution{Window: w, IsException: true, Exception: &exc}, nil
			}
		}
	}

	w, err := c.CurrentNormalPeriod(p.CycleStartDay, ref)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Window: w}, nil
}

// ExceptionWindow computes the window an exception carves out: it starts at
// the declared trigger date exactly (no business-day adjustment) and ends one
// month past the normal period that would have contained the trigger,
// adjusted like a normal period boundary, minus one day.
func (c *Calendar) ExceptionWindow(cycleStartDay int, trigger core.Date) (Window, error) {
	normal, err := c.CurrentNormalPeriod(cycleStartDay, trigger)
	if err != nil {
		return Window{}, err
	}

	endYear, endMonth := addMonth(normal.End.Year(), normal.End.Month(), 1)
	endCandidate := cycleDate(endYear, endMonth, normal.End.Day())
	adjusted, err := c.PreviousBusinessDay(endCandidate)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: trigger, End: adjusted.AddDays(-1)}, nil
}

// PruneStaleExceptions removes exceptions whose trigger date is more than the
// default retention window in the past. Pure: the input person is unchanged.
func PruneStaleExceptions(p core.Person, now core.Date) core.Person {
	return PruneExceptionsOlderThan(p, now, DefaultExceptionRetentionDays)
}

// PruneExceptionsOlderThan removes exceptions triggered more than
// retentionDays before now, preserving the order of the survivors.
func PruneExceptionsOlderThan(p core.Person, now core.Date, retentionDays int) core.Person {
	out := p.Clone()
	cutoff := now.AddDays(-retentionDays)
	kept := out.Exceptions[:0]
	for _, exc := range out.Exceptions {
		if exc.TriggerDate.OnOrAfter(cutoff) {
			kept = append(kept, exc)
		}
	}
	out.Exceptions = kept
	return out
}
