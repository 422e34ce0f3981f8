package cycle

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"wealthpillar/internal/core"
)

// FixedHoliday is a holiday that falls on the same month and day every year.
type FixedHoliday struct {
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Name  string `json:"name"`
}

// Calendar classifies dates as business or non-business days. The fixed
// holiday table is injected so regional variants can be supplied without code
// changes; Easter Sunday and Easter Monday are always computed.
type Calendar struct {
	fixed map[int]string // month*100+day -> holiday name
}

// NewCalendar builds a calendar from the given fixed-holiday table.
func NewCalendar(holidays []FixedHoliday) *Calendar {
	fixed := make(map[int]string, len(holidays))
	for _, h := range holidays {
		fixed[h.Month*100+h.Day] = h.Name
	}
	return &Calendar{fixed: fixed}
}

// ItalianHolidays is the national fixed-date holiday table.
func ItalianHolidays() []FixedHoliday {
	return []FixedHoliday{
		{Month: 1, Day: 1, Name: "Capodanno"},
		{Month: 1, Day: 6, Name: "Epifania"},
		{Month: 4, Day: 25, Name: "Festa della Liberazione"},
		{Month: 5, Day: 1, Name: "Festa del Lavoro"},
		{Month: 6, Day: 2, Name: "Festa della Repubblica"},
		{Month: 8, Day: 15, Name: "Ferragosto"},
		{Month: 11, Day: 1, Name: "Ognissanti"},
		{Month: 12, Day: 8, Name: "Immacolata Concezione"},
		{Month: 12, Day: 25, Name: "Natale"},
		{Month: 12, Day: 26, Name: "Santo Stefano"},
	}
}

// DefaultCalendar returns a calendar with the Italian national holidays.
func DefaultCalendar() *Calendar {
	return NewCalendar(ItalianHolidays())
}

// LoadFixedHolidays reads a fixed-holiday table from a JSON file:
// [{"month": 1, "day": 6, "name": "Epifania"}, ...].
func LoadFixedHolidays(path string) ([]FixedHoliday, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday table: %w", err)
	}
	var holidays []FixedHoliday
	if err := json.Unmarshal(data, &holidays); err != nil {
		return nil, fmt.Errorf("parse holiday table %s: %w", path, err)
	}
	for i, h := range holidays {
		if h.Month < 1 || h.Month > 12 || h.Day < 1 || h.Day > 31 {
			return nil, fmt.Errorf("holiday table %s entry %d: invalid month/day %d-%d", path, i, h.Month, h.Day)
		}
	}
	return holidays, nil
}

// IsHoliday reports whether the date is a non-business day: a weekend, a
// fixed-date holiday, or Easter Sunday / Easter Monday of that year.
func (c *Calendar) IsHoliday(d core.Date) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return true
	}
	if _, ok := c.fixed[d.Month()*100+d.Day()]; ok {
		return true
	}
	easter := easterSunday(d.Year())
	if d.Equal(easter.Time) || d.Equal(easter.AddDays(1).Time) {
		return true
	}
	return false
}

// easterSunday returns the date of Easter Sunday for a given year
// (Meeus/Jones/Butcher algorithm for the Gregorian calendar).
func easterSunday(year int) core.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return core.NewDate(year, month, day)
}
