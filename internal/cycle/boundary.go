// Package cycle implements the budget cycle engine: holiday classification,
// business-day resolution, period boundary computation, exception overrides,
// the period ledger, and spend aggregation. Every operation is a pure
// function over value inputs; callers persist the returned values.
package cycle

import (
	"fmt"

	"wealthpillar/internal/core"
)

// Window is the inclusive date range [Start, End] of a budget period.
type Window struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d core.Date) bool {
	return d.OnOrAfter(w.Start) && d.OnOrBefore(w.End)
}

// CurrentNormalPeriod computes the unmodified budget period containing the
// reference date for the given cycle start day:
//
//  1. The candidate start is the cycle-day date in the reference month, or in
//     the previous month when the reference day has not reached it yet.
//  2. The start rolls back to the closest business day.
//  3. The end is the day before the next period's adjusted start. The end is
//     deliberately not re-checked against the calendar: periods must tile
//     the timeline, so only starts are adjusted.
func (c *Calendar) CurrentNormalPeriod(cycleStartDay int, ref core.Date) (Window, error) {
	if cycleStartDay < 1 || cycleStartDay > 31 {
		return Window{}, fmt.Errorf("cycle start day %d: %w", cycleStartDay, core.ErrInvalidCycleStartDay)
	}

	year, month := ref.Year(), ref.Month()
	if ref.Day() < cycleStartDay {
		year, month = addMonth(year, month, -1)
	}

	w, err := c.monthWindow(year, month, cycleStartDay)
	if err != nil {
		return Window{}, err
	}

	// When the next period's start rolled back past the month boundary, ref
	// can land beyond this window's end; it then belongs to the next period.
	if ref.After(w.End.Time) {
		year, month = addMonth(year, month, 1)
		w, err = c.monthWindow(year, month, cycleStartDay)
		if err != nil {
			return Window{}, err
		}
	}

	return w, nil
}

// monthWindow computes the adjusted window for the period anchored in the
// given candidate month.
func (c *Calendar) monthWindow(year, month, cycleStartDay int) (Window, error) {
	start, err := c.PreviousBusinessDay(cycleDate(year, month, cycleStartDay))
	if err != nil {
		return Window{}, err
	}

	nextYear, nextMonth := addMonth(year, month, 1)
	nextStart, err := c.PreviousBusinessDay(cycleDate(nextYear, nextMonth, cycleStartDay))
	if err != nil {
		return Window{}, err
	}

	return Window{Start: start, End: nextStart.AddDays(-1)}, nil
}

// NextCycleStart computes the adjusted start of the period following the one
// that contains ref. Periods tile the timeline, so the next start is always
// the day after the current window's end.
func (c *Calendar) NextCycleStart(cycleStartDay int, ref core.Date) (core.Date, error) {
	w, err := c.CurrentNormalPeriod(cycleStartDay, ref)
	if err != nil {
		return core.Date{}, err
	}
	return w.End.AddDays(1), nil
}

// cycleDate builds the cycle-day date in the given month, clamping the day to
// the month's length so day 31 works in short months.
func cycleDate(year, month, day int) core.Date {
	if last := core.DaysInMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// addMonth shifts a year/month pair, normalizing across year boundaries.
func addMonth(year, month, delta int) (int, int) {
	m := month - 1 + delta
	y := year + m/12
	m = m % 12
	if m < 0 {
		m += 12
		y--
	}
	return y, m + 1
}
