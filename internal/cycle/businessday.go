package cycle

import (
	"errors"
	"fmt"

	"wealthpillar/internal/core"
)

// maxBusinessDayWalk caps the holiday walk. The longest compliant stretch of
// consecutive non-business days is a handful of days; hitting the cap means
// the injected holiday table is degenerate.
const maxBusinessDayWalk = 14

// ErrNoBusinessDay is returned when no business day is found within the walk
// bound. It indicates a misconfigured holiday table, not a caller mistake.
var ErrNoBusinessDay = errors.New("no business day found within walk bound")

// PreviousBusinessDay returns the closest business day at or before d.
func (c *Calendar) PreviousBusinessDay(d core.Date) (core.Date, error) {
	return c.walk(d, -1)
}

// NextBusinessDay returns the closest business day at or after d.
func (c *Calendar) NextBusinessDay(d core.Date) (core.Date, error) {
	return c.walk(d, 1)
}

func (c *Calendar) walk(d core.Date, step int) (core.Date, error) {
	cur := d
	for i := 0; i <= maxBusinessDayWalk; i++ {
		if !c.IsHoliday(cur) {
			return cur, nil
		}
		cur = cur.AddDays(step)
	}
	return core.Date{}, fmt.Errorf("walking from %s: %w", d, ErrNoBusinessDay)
}
