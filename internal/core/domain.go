package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income   TransactionKind = "income"
	Expense  TransactionKind = "expense"
	Transfer TransactionKind = "transfer"
)

const (
	PeriodOpen   PeriodStatus = "open"
	PeriodClosed PeriodStatus = "closed"
)

type (
	TransactionKind string

	PeriodStatus string

	// Period is one budgeting cycle for a person. It is a tagged variant:
	// an open period has only a start date, a closed one has both boundaries.
	// Use NewOpenPeriod / NewClosedPeriod so the two states stay consistent.
	Period struct {
		Start  Date
		End    Date // meaningful only when Status == PeriodClosed
		Status PeriodStatus
	}

	// Exception is a manually declared date that displaces the normal cycle
	// starting at TriggerDate. Exceptions never mutate stored periods; they
	// are consulted at read time.
	Exception struct {
		ID          string
		TriggerDate Date
		Reason      string
		CreatedAt   time.Time
	}

	// Person carries the budgeting configuration: the day of month the cycle
	// starts on (1-31, zero means not configured), the chronological period
	// history, and any active exceptions.
	Person struct {
		ID            string
		Name          string
		CycleStartDay int
		Periods       []Period
		Exceptions    []Exception
	}

	Budget struct {
		ID            string
		Description   string
		Amount        Money
		Categories    []string
		OwnerPersonID string
	}

	Transaction struct {
		ID              string
		Date            Date
		Description     string
		Category        string
		Amount          Money
		Kind            TransactionKind
		AccountID       string
		IsReconciled    bool
		RemainingAmount Money // balance still counted when reconciled
	}

	// Account links transactions to the persons who share it.
	Account struct {
		ID        string
		Name      string
		MemberIDs []string
	}
)

var (
	ErrInvalidCycleStartDay = errors.New("cycle start day must be between 1 and 31")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrEmptyCategory        = errors.New("empty category")
	ErrEmptyOwner           = errors.New("empty owner person id")
	ErrEmptyAccount         = errors.New("empty account id")
	ErrInvalidKind          = errors.New("invalid transaction kind")
	ErrInvalidTriggerDate   = errors.New("invalid exception trigger date")
)

// NewOpenPeriod returns an open period starting at start.
func NewOpenPeriod(start Date) Period {
	return Period{Start: start, Status: PeriodOpen}
}

// NewClosedPeriod returns a completed period covering [start, end].
func NewClosedPeriod(start, end Date) Period {
	return Period{Start: start, End: end, Status: PeriodClosed}
}

// IsOpen reports whether the period has not been completed yet.
func (p Period) IsOpen() bool {
	return p.Status == PeriodOpen
}

func (p Period) Validate() error {
	if err := p.Start.Validate(); err != nil {
		return fmt.Errorf("invalid period start: %w", err)
	}
	switch p.Status {
	case PeriodOpen:
		if !p.End.IsZero() {
			return errors.New("open period cannot have an end date")
		}
	case PeriodClosed:
		if err := p.End.Validate(); err != nil {
			return fmt.Errorf("invalid period end: %w", err)
		}
		if p.End.Before(p.Start.Time) {
			return errors.New("period end must not precede start")
		}
	default:
		return fmt.Errorf("invalid period status %q", p.Status)
	}
	return nil
}

// periodJSON is the persisted representation shared with external
// collaborators: {startDate, endDate?, isCompleted}.
type periodJSON struct {
	StartDate   Date  `json:"startDate"`
	EndDate     *Date `json:"endDate,omitempty"`
	IsCompleted bool  `json:"isCompleted"`
}

func (p Period) MarshalJSON() ([]byte, error) {
	out := periodJSON{StartDate: p.Start, IsCompleted: p.Status == PeriodClosed}
	if p.Status == PeriodClosed {
		end := p.End
		out.EndDate = &end
	}
	return json.Marshal(out)
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var in periodJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.IsCompleted {
		if in.EndDate == nil {
			return errors.New("completed period is missing its end date")
		}
		*p = NewClosedPeriod(in.StartDate, *in.EndDate)
		return nil
	}
	*p = NewOpenPeriod(in.StartDate)
	return nil
}

func (e Exception) Validate() error {
	if e.TriggerDate.IsZero() {
		return ErrInvalidTriggerDate
	}
	if len(e.Reason) > 200 {
		return errors.New("reason too long (max 200 characters)")
	}
	return nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("empty person id")
	}
	// Zero means the cycle start day has not been configured; resolution
	// then falls back to a fixed 30-day window.
	if p.CycleStartDay != 0 && (p.CycleStartDay < 1 || p.CycleStartDay > 31) {
		return ErrInvalidCycleStartDay
	}
	for i, period := range p.Periods {
		if err := period.Validate(); err != nil {
			return fmt.Errorf("period %d: %w", i, err)
		}
	}
	for i, exc := range p.Exceptions {
		if err := exc.Validate(); err != nil {
			return fmt.Errorf("exception %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the person. Engine operations return new
// Person values; cloning first keeps the input's slices untouched.
func (p Person) Clone() Person {
	out := p
	out.Periods = append([]Period(nil), p.Periods...)
	out.Exceptions = append([]Exception(nil), p.Exceptions...)
	return out
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.OwnerPersonID) == "" {
		return ErrEmptyOwner
	}
	if len(b.Categories) == 0 {
		return ErrEmptyCategory
	}
	for _, c := range b.Categories {
		if strings.TrimSpace(c) == "" {
			return ErrEmptyCategory
		}
	}
	return nil
}

// CoversCategory reports whether the budget spans the given category key.
func (b Budget) CoversCategory(category string) bool {
	for _, c := range b.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	switch t.Kind {
	case Income, Expense, Transfer:
	default:
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyAccount
	}
	return nil
}

// HasMember reports whether the person is among the account's members.
func (a Account) HasMember(personID string) bool {
	for _, id := range a.MemberIDs {
		if id == personID {
			return true
		}
	}
	return false
}
