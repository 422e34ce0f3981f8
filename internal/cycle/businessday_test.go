package cycle

import (
	"errors"
	"testing"

	"wealthpillar/internal/core"
)

func TestPreviousBusinessDay(t *testing.T) {
	cal := DefaultCalendar()

	cases := []struct {
		name string
		in   core.Date
		want core.Date
	}{
		{"already business day", core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 1)},
		{"sunday rolls to friday", core.NewDate(2024, 3, 3), core.NewDate(2024, 3, 1)},
		{"new year rolls across year end", core.NewDate(2025, 1, 1), core.NewDate(2024, 12, 31)},
		{"easter monday rolls past the weekend", core.NewDate(2024, 4, 1), core.NewDate(2024, 3, 29)},
		{"christmas cluster", core.NewDate(2024, 12, 25), core.NewDate(2024, 12, 24)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cal.PreviousBusinessDay(tc.in)
			if err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !got.Equal(tc.want.Time) {
				t.Fatalf("PreviousBusinessDay(%s) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestNextBusinessDay(t *testing.T) {
	cal := DefaultCalendar()

	cases := []struct {
		name string
		in   core.Date
		want core.Date
	}{
		{"already business day", core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 1)},
		{"saturday rolls to monday", core.NewDate(2024, 3, 2), core.NewDate(2024, 3, 4)},
		{"easter weekend rolls to tuesday", core.NewDate(2024, 3, 30), core.NewDate(2024, 4, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cal.NextBusinessDay(tc.in)
			if err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !got.Equal(tc.want.Time) {
				t.Fatalf("NextBusinessDay(%s) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestPreviousBusinessDayIdempotent(t *testing.T) {
	cal := DefaultCalendar()
	for _, d := range []core.Date{
		core.NewDate(2024, 3, 31),
		core.NewDate(2024, 12, 25),
		core.NewDate(2025, 1, 6),
		core.NewDate(2024, 6, 2),
	} {
		first, err := cal.PreviousBusinessDay(d)
		if err != nil {
			t.Fatalf("first walk from %s: %v", d, err)
		}
		second, err := cal.PreviousBusinessDay(first)
		if err != nil {
			t.Fatalf("second walk from %s: %v", first, err)
		}
		if !second.Equal(first.Time) {
			t.Fatalf("not idempotent: %s -> %s -> %s", d, first, second)
		}
	}
}

func TestBusinessDayWalkBound(t *testing.T) {
	// A degenerate table marking every day of the year as a holiday.
	var table []FixedHoliday
	for m := 1; m <= 12; m++ {
		for d := 1; d <= 31; d++ {
			table = append(table, FixedHoliday{Month: m, Day: d, Name: "degenerate"})
		}
	}
	cal := NewCalendar(table)

	if _, err := cal.PreviousBusinessDay(core.NewDate(2024, 3, 15)); !errors.Is(err, ErrNoBusinessDay) {
		t.Fatalf("expected ErrNoBusinessDay, got %v", err)
	}
	if _, err := cal.NextBusinessDay(core.NewDate(2024, 3, 15)); !errors.Is(err, ErrNoBusinessDay) {
		t.Fatalf("expected ErrNoBusinessDay, got %v", err)
	}
}
