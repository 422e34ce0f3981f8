package cycle

import (
	"testing"
	"time"

	"wealthpillar/internal/core"
)

func personWith(day int, exceptions ...core.Exception) core.Person {
	return core.Person{ID: "p1", Name: "Ada", CycleStartDay: day, Exceptions: exceptions}
}

func TestResolveActivePeriodNormal(t *testing.T) {
	cal := DefaultCalendar()

	res, err := cal.ResolveActivePeriod(personWith(1), core.NewDate(2024, 2, 15))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if res.IsException {
		t.Fatalf("expected normal period")
	}
	if !res.Window.Start.Equal(core.NewDate(2024, 2, 1).Time) || !res.Window.End.Equal(core.NewDate(2024, 2, 29).Time) {
		t.Fatalf("unexpected window %s..%s", res.Window.Start, res.Window.End)
	}
}

func TestResolveActivePeriodException(t *testing.T) {
	cal := DefaultCalendar()
	exc := core.Exception{ID: "e1", TriggerDate: core.NewDate(2024, 3, 10), Reason: "salary came early", CreatedAt: time.Now()}

	res, err := cal.ResolveActivePeriod(personWith(1, exc), core.NewDate(2024, 3, 20))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !res.IsException {
		t.Fatalf("expected exception to apply")
	}
	if !res.Window.Start.Equal(core.NewDate(2024, 3, 10).Time) {
		t.Fatalf("exception window must start at the trigger date, got %s", res.Window.Start)
	}
	if res.Exception == nil || res.Exception.ID != "e1" {
		t.Fatalf("expected winning exception to be reported")
	}
	if !res.Window.Contains(exc.TriggerDate) {
		t.Fatalf("exception window must contain its own trigger date")
	}
}

func TestResolveActivePeriodAtTriggerDate(t *testing.T) {
	cal := DefaultCalendar()
	for _, trigger := range []core.Date{
		core.NewDate(2024, 3, 10),
		core.NewDate(2024, 3, 31), // a Sunday: the trigger is honored unadjusted
		core.NewDate(2024, 12, 25),
	} {
		exc := core.Exception{ID: "e1", TriggerDate: trigger}
		res, err := cal.ResolveActivePeriod(personWith(1, exc), trigger)
		if err != nil {
			t.Fatalf("trigger %s: %v", trigger, err)
		}
		if !res.IsException {
			t.Fatalf("trigger %s: expected exception to apply at its own date", trigger)
		}
		if !res.Window.Start.Equal(trigger.Time) {
			t.Fatalf("trigger %s: window starts at %s", trigger, res.Window.Start)
		}
	}
}

func TestResolveActivePeriodMostRecentWins(t *testing.T) {
	cal := DefaultCalendar()
	older := core.Exception{ID: "old", TriggerDate: core.NewDate(2024, 3, 5)}
	newer := core.Exception{ID: "new", TriggerDate: core.NewDate(2024, 3, 12)}

	// Both windows contain Mar 20; the newer trigger must win regardless of
	// declaration order.
	res, err := cal.ResolveActivePeriod(personWith(1, older, newer), core.NewDate(2024, 3, 20))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !res.IsException || res.Exception.ID != "new" {
		t.Fatalf("expected newest exception to win, got %+v", res.Exception)
	}
}

func TestResolveActivePeriodFallsBackPastExceptions(t *testing.T) {
	cal := DefaultCalendar()
	exc := core.Exception{ID: "e1", TriggerDate: core.NewDate(2023, 6, 10)}

	// The exception window ended long before the reference date.
	res, err := cal.ResolveActivePeriod(personWith(1, exc), core.NewDate(2024, 2, 15))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if res.IsException {
		t.Fatalf("expected fallback to the normal period")
	}
	if !res.Window.Start.Equal(core.NewDate(2024, 2, 1).Time) {
		t.Fatalf("unexpected window start %s", res.Window.Start)
	}
}

func TestResolveActivePeriodUnconfiguredPerson(t *testing.T) {
	cal := DefaultCalendar()
	ref := core.NewDate(2024, 3, 15)

	res, err := cal.ResolveActivePeriod(personWith(0), ref)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if res.IsException {
		t.Fatalf("expected plain fallback window")
	}
	if !res.Window.Start.Equal(ref.Time) || !res.Window.End.Equal(ref.AddDays(30).Time) {
		t.Fatalf("unexpected fallback window %s..%s", res.Window.Start, res.Window.End)
	}
}

func TestExceptionWindowEnd(t *testing.T) {
	cal := DefaultCalendar()

	// Normal period for a Mar 10, 2024 trigger with cycle day 1 ends Mar 28
	// (Apr 1 is Easter Monday). Shifting one month gives Apr 28, a Sunday,
	// adjusted back to Apr 26 (Apr 25 is Liberation Day); minus one day.
	w, err := cal.ExceptionWindow(1, core.NewDate(2024, 3, 10))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := core.NewDate(2024, 4, 25); !w.End.Equal(want.Time) {
		t.Fatalf("exception window end = %s, want %s", w.End, want)
	}
}

func TestPruneStaleExceptions(t *testing.T) {
	now := core.NewDate(2024, 6, 1)
	stale := core.Exception{ID: "stale", TriggerDate: now.AddDays(-91)}
	edge := core.Exception{ID: "edge", TriggerDate: now.AddDays(-90)}
	fresh := core.Exception{ID: "fresh", TriggerDate: now.AddDays(-5)}
	future := core.Exception{ID: "future", TriggerDate: now.AddDays(10)}

	p := personWith(1, stale, edge, fresh, future)
	pruned := PruneStaleExceptions(p, now)

	if len(pruned.Exceptions) != 3 {
		t.Fatalf("expected 3 exceptions kept, got %d", len(pruned.Exceptions))
	}
	// Order preserved, only the stale one removed.
	for i, want := range []string{"edge", "fresh", "future"} {
		if pruned.Exceptions[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, pruned.Exceptions[i].ID, want)
		}
	}
	// The input person is untouched.
	if len(p.Exceptions) != 4 {
		t.Fatalf("input person mutated: %d exceptions", len(p.Exceptions))
	}
}

func TestPruneExceptionsOlderThanCustomRetention(t *testing.T) {
	now := core.NewDate(2024, 6, 1)
	p := personWith(1,
		core.Exception{ID: "a", TriggerDate: now.AddDays(-40)},
		core.Exception{ID: "b", TriggerDate: now.AddDays(-10)},
	)

	pruned := PruneExceptionsOlderThan(p, now, 30)
	if len(pruned.Exceptions) != 1 || pruned.Exceptions[0].ID != "b" {
		t.Fatalf("unexpected survivors %+v", pruned.Exceptions)
	}
}
