package cycle

import (
	"errors"
	"testing"

	"wealthpillar/internal/core"
)

func TestCurrentNormalPeriod(t *testing.T) {
	cal := DefaultCalendar()

	cases := []struct {
		name          string
		cycleStartDay int
		ref           core.Date
		wantStart     core.Date
		wantEnd       core.Date
	}{
		{
			// Feb 1, 2024 is a Thursday and Mar 1, 2024 a Friday, neither a holiday.
			name:          "plain month",
			cycleStartDay: 1,
			ref:           core.NewDate(2024, 2, 15),
			wantStart:     core.NewDate(2024, 2, 1),
			wantEnd:       core.NewDate(2024, 2, 29),
		},
		{
			// Reference day before the cycle day selects the previous month.
			name:          "reference before cycle day",
			cycleStartDay: 15,
			ref:           core.NewDate(2024, 2, 10),
			wantStart:     core.NewDate(2024, 1, 15),
			wantEnd:       core.NewDate(2024, 2, 14),
		},
		{
			// Jan 1, 2025 is a holiday; the start rolls back into December.
			name:          "start rolls over year boundary",
			cycleStartDay: 1,
			ref:           core.NewDate(2025, 1, 15),
			wantStart:     core.NewDate(2024, 12, 31),
			wantEnd:       core.NewDate(2025, 1, 30),
		},
		{
			// Apr 1, 2024 is Easter Monday; the next start rolls back to
			// Mar 29 so the period containing mid-March ends on Mar 28.
			name:          "next start adjusted for easter monday",
			cycleStartDay: 1,
			ref:           core.NewDate(2024, 3, 15),
			wantStart:     core.NewDate(2024, 3, 1),
			wantEnd:       core.NewDate(2024, 3, 28),
		},
		{
			// Mar 29-31, 2024 sit past the March window's end because the
			// April start rolled back to Mar 29; they belong to April's period.
			// May 1 is a holiday, so that period ends on Apr 29.
			name:          "reference inside rolled-back start zone",
			cycleStartDay: 1,
			ref:           core.NewDate(2024, 3, 30),
			wantStart:     core.NewDate(2024, 3, 29),
			wantEnd:       core.NewDate(2024, 4, 29),
		},
		{
			// Day 31 clamps to the end of short months.
			name:          "day clamped in february",
			cycleStartDay: 31,
			ref:           core.NewDate(2024, 2, 15),
			wantStart:     core.NewDate(2024, 1, 31),
			wantEnd:       core.NewDate(2024, 2, 28),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cal.CurrentNormalPeriod(tc.cycleStartDay, tc.ref)
			if err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !got.Start.Equal(tc.wantStart.Time) {
				t.Fatalf("start = %s, want %s", got.Start, tc.wantStart)
			}
			if !got.End.Equal(tc.wantEnd.Time) {
				t.Fatalf("end = %s, want %s", got.End, tc.wantEnd)
			}
		})
	}
}

func TestCurrentNormalPeriodRejectsInvalidDay(t *testing.T) {
	cal := DefaultCalendar()
	for _, day := range []int{0, -1, 32} {
		if _, err := cal.CurrentNormalPeriod(day, core.NewDate(2024, 3, 15)); !errors.Is(err, core.ErrInvalidCycleStartDay) {
			t.Fatalf("cycleStartDay %d: expected ErrInvalidCycleStartDay, got %v", day, err)
		}
	}
}

func TestNormalPeriodStartIsAlwaysBusinessDay(t *testing.T) {
	cal := DefaultCalendar()
	refs := []core.Date{
		core.NewDate(2024, 1, 10),
		core.NewDate(2024, 4, 20),
		core.NewDate(2024, 8, 16),
		core.NewDate(2024, 12, 27),
		core.NewDate(2025, 1, 2),
		core.NewDate(2025, 4, 22),
	}
	for day := 1; day <= 31; day++ {
		for _, ref := range refs {
			w, err := cal.CurrentNormalPeriod(day, ref)
			if err != nil {
				t.Fatalf("day %d ref %s: %v", day, ref, err)
			}
			if cal.IsHoliday(w.Start) {
				t.Fatalf("day %d ref %s: start %s is not a business day", day, ref, w.Start)
			}
			if !w.Start.OnOrBefore(w.End) {
				t.Fatalf("day %d ref %s: start %s after end %s", day, ref, w.Start, w.End)
			}
			if !w.Contains(ref) {
				t.Fatalf("day %d: window [%s, %s] does not contain ref %s", day, w.Start, w.End, ref)
			}
		}
	}
}

func TestNextCycleStart(t *testing.T) {
	cal := DefaultCalendar()

	// Applied to a period end of Feb 29, 2024 with cycle day 1: the next
	// candidate is Mar 1, already a business day.
	got, err := cal.NextCycleStart(1, core.NewDate(2024, 2, 29))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := core.NewDate(2024, 3, 1); !got.Equal(want.Time) {
		t.Fatalf("NextCycleStart = %s, want %s", got, want)
	}

	// Applied to a period end of Mar 28, 2024: the next candidate is Apr 1
	// (Easter Monday), adjusted back to Mar 29.
	got, err = cal.NextCycleStart(1, core.NewDate(2024, 3, 28))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := core.NewDate(2024, 3, 29); !got.Equal(want.Time) {
		t.Fatalf("NextCycleStart = %s, want %s", got, want)
	}

	if _, err := cal.NextCycleStart(0, core.NewDate(2024, 2, 29)); !errors.Is(err, core.ErrInvalidCycleStartDay) {
		t.Fatalf("expected ErrInvalidCycleStartDay, got %v", err)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 31)}
	if !w.Contains(core.NewDate(2024, 3, 1)) || !w.Contains(core.NewDate(2024, 3, 31)) {
		t.Fatalf("window boundaries must be inclusive")
	}
	if w.Contains(core.NewDate(2024, 2, 29)) || w.Contains(core.NewDate(2024, 4, 1)) {
		t.Fatalf("window must exclude dates outside boundaries")
	}
}
