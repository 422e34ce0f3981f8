package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateParseAndString(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 15 {
		t.Fatalf("unexpected date %v", d)
	}
	if d.String() != "2024-03-15" {
		t.Fatalf("unexpected string %q", d.String())
	}
	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 12, 1)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-12-01"` {
		t.Fatalf("unexpected JSON %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %v != %v", back, d)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2024, 2, 29}, // leap year
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for i, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("case %d: DaysInMonth(%d, %d) = %d, want %d", i, tc.year, tc.month, got, tc.want)
		}
	}
}

func TestPeriodValidate(t *testing.T) {
	start := NewDate(2024, 3, 1)
	end := NewDate(2024, 3, 31)

	if err := NewOpenPeriod(start).Validate(); err != nil {
		t.Fatalf("open period: expected ok, got %v", err)
	}
	if err := NewClosedPeriod(start, end).Validate(); err != nil {
		t.Fatalf("closed period: expected ok, got %v", err)
	}
	if err := NewClosedPeriod(end, start).Validate(); err == nil {
		t.Fatalf("expected error for end before start")
	}
	bad := Period{Start: start, End: end, Status: PeriodOpen}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for open period with end date")
	}
}

func TestPeriodJSONRoundTrip(t *testing.T) {
	open := NewOpenPeriod(NewDate(2024, 3, 1))
	b, err := json.Marshal(open)
	if err != nil {
		t.Fatalf("marshal open: %v", err)
	}
	if string(b) != `{"startDate":"2024-03-01","isCompleted":false}` {
		t.Fatalf("unexpected open JSON %s", b)
	}

	closed := NewClosedPeriod(NewDate(2024, 3, 1), NewDate(2024, 3, 31))
	b, err = json.Marshal(closed)
	if err != nil {
		t.Fatalf("marshal closed: %v", err)
	}
	var back Period
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal closed: %v", err)
	}
	if back != closed {
		t.Fatalf("round trip changed period: %+v != %+v", back, closed)
	}

	// A completed period without an end date must be rejected.
	if err := json.Unmarshal([]byte(`{"startDate":"2024-03-01","isCompleted":true}`), &back); err == nil {
		t.Fatalf("expected error for completed period without end date")
	}
}

func TestPersonValidate(t *testing.T) {
	cases := []struct {
		name string
		p    Person
		ok   bool
	}{
		{"configured", Person{ID: "p1", CycleStartDay: 15}, true},
		{"unconfigured day", Person{ID: "p1"}, true},
		{"day too large", Person{ID: "p1", CycleStartDay: 32}, false},
		{"negative day", Person{ID: "p1", CycleStartDay: -1}, false},
		{"missing id", Person{CycleStartDay: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestPersonClone(t *testing.T) {
	p := Person{
		ID:            "p1",
		CycleStartDay: 1,
		Periods:       []Period{NewOpenPeriod(NewDate(2024, 3, 1))},
		Exceptions:    []Exception{{ID: "e1", TriggerDate: NewDate(2024, 3, 10), CreatedAt: time.Now()}},
	}
	c := p.Clone()
	c.Periods[0] = NewOpenPeriod(NewDate(2025, 1, 1))
	c.Exceptions[0].ID = "changed"
	if p.Periods[0].Start.Year() != 2024 {
		t.Fatalf("clone shares periods backing array")
	}
	if p.Exceptions[0].ID != "e1" {
		t.Fatalf("clone shares exceptions backing array")
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{ID: "b1", Amount: Money{Cents: 50000}, Categories: []string{"groceries"}, OwnerPersonID: "p1"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Budget{
		{ID: "b1", Amount: Money{Cents: 0}, Categories: []string{"groceries"}, OwnerPersonID: "p1"},
		{ID: "b1", Amount: Money{Cents: 100}, Categories: nil, OwnerPersonID: "p1"},
		{ID: "b1", Amount: Money{Cents: 100}, Categories: []string{" "}, OwnerPersonID: "p1"},
		{ID: "b1", Amount: Money{Cents: 100}, Categories: []string{"groceries"}, OwnerPersonID: ""},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	if !good.CoversCategory("groceries") {
		t.Fatalf("expected category covered")
	}
	if good.CoversCategory("rent") {
		t.Fatalf("expected category not covered")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          "t1",
		Date:        NewDate(2024, 3, 5),
		Description: "weekly shop",
		Category:    "groceries",
		Amount:      Money{Cents: 5000},
		Kind:        Expense,
		AccountID:   "a1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{ID: "t1", Description: "a", Category: "c", Amount: Money{Cents: 1}, Kind: Expense, AccountID: "a1"}, // zero date
		{ID: "t1", Date: NewDate(2024, 3, 5), Description: "", Category: "c", Amount: Money{Cents: 1}, Kind: Expense, AccountID: "a1"},
		{ID: "t1", Date: NewDate(2024, 3, 5), Description: "a", Category: "c", Amount: Money{Cents: 0}, Kind: Expense, AccountID: "a1"},
		{ID: "t1", Date: NewDate(2024, 3, 5), Description: "a", Category: "c", Amount: Money{Cents: 1}, Kind: "refund", AccountID: "a1"},
		{ID: "t1", Date: NewDate(2024, 3, 5), Description: "a", Category: "", Amount: Money{Cents: 1}, Kind: Expense, AccountID: "a1"},
		{ID: "t1", Date: NewDate(2024, 3, 5), Description: "a", Category: "c", Amount: Money{Cents: 1}, Kind: Expense, AccountID: ""},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountHasMember(t *testing.T) {
	a := Account{ID: "a1", MemberIDs: []string{"p1", "p2"}}
	if !a.HasMember("p2") {
		t.Fatalf("expected member")
	}
	if a.HasMember("p3") {
		t.Fatalf("expected non-member")
	}
}
