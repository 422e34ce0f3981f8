package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the wire format for calendar dates. Budget boundaries are
// date-only values, so no time-of-day component is ever serialized.
const DateFormat = "2006-01-02"

// Date is a calendar date with day-level granularity, anchored at midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses an ISO calendar date string (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Time.Format(DateFormat)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths returns the date n months after d. Day-of-month overflow follows
// time.AddDate normalization (Jan 31 + 1 month = Mar 2/3); callers that need
// end-of-month clamping construct the date explicitly.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// DaysInMonth returns the number of days in the given month of the given year.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// OnOrBefore reports whether d is not after x.
func (d Date) OnOrBefore(x Date) bool {
	return !d.Time.After(x.Time)
}

// OnOrAfter reports whether d is not before x.
func (d Date) OnOrAfter(x Date) bool {
	return !d.Time.Before(x.Time)
}

// MarshalJSON encodes the date as an ISO date string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes an ISO date string; empty string means the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
