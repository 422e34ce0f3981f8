package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wealthpillar/internal/amqp"
	"wealthpillar/internal/core"
	"wealthpillar/internal/cycle"
	"wealthpillar/internal/log"
)

// ErrExceptionNotFound is returned when deleting an unknown exception.
var ErrExceptionNotFound = errors.New("exception not found")

// ErrDuplicateException is returned when an exception already exists for the
// requested trigger date.
var ErrDuplicateException = errors.New("exception already exists for trigger date")

// Repository is the persistence surface the cycle services need.
type Repository interface {
	GetPerson(ctx context.Context, id string) (*core.Person, error)
	SavePerson(ctx context.Context, p core.Person) error
	ListPersonIDs(ctx context.Context) ([]string, error)
	GetBudget(ctx context.Context, id string) (*core.Budget, error)
	TransactionsInWindow(ctx context.Context, start, end core.Date) ([]core.Transaction, error)
	AccountMemberships(ctx context.Context) (map[string][]string, error)
	Close() error
}

// CycleService orchestrates period resolution, exception management, and
// period close-out across SQLite and AMQP.
type CycleService struct {
	repo       Repository
	calendar   *cycle.Calendar
	amqpClient *amqp.Client
}

func NewCycleService(repo Repository, calendar *cycle.Calendar, amqpClient *amqp.Client) *CycleService {
	if calendar == nil {
		calendar = cycle.DefaultCalendar()
	}
	return &CycleService{
		repo:       repo,
		calendar:   calendar,
		amqpClient: amqpClient,
	}
}

// ResolveActivePeriod returns the budgeting window containing ref for the
// person, taking declared exceptions into account.
func (s *CycleService) ResolveActivePeriod(ctx context.Context, personID string, ref core.Date) (cycle.Resolution, error) {
	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return cycle.Resolution{}, fmt.Errorf("resolve period for %s: %w", personID, err)
	}
	return s.calendar.ResolveActivePeriod(*person, ref)
}

// CreateException records a manual cycle displacement starting at trigger.
func (s *CycleService) CreateException(ctx context.Context, personID string, trigger core.Date, reason string) (*core.Exception, error) {
	if err := trigger.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidTriggerDate, err)
	}

	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("create exception for %s: %w", personID, err)
	}

	for _, e := range person.Exceptions {
		if e.TriggerDate.Equal(trigger.Time) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateException, trigger)
		}
	}

	exc := core.Exception{
		ID:          newExceptionID(),
		TriggerDate: trigger,
		Reason:      strings.TrimSpace(reason),
		CreatedAt:   time.Now().UTC(),
	}

	updated := person.Clone()
	updated.Exceptions = append(updated.Exceptions, exc)
	if err := s.repo.SavePerson(ctx, updated); err != nil {
		return nil, fmt.Errorf("save exception for %s: %w", personID, err)
	}

	slog.InfoContext(ctx, "Exception created",
		log.FieldComponent, log.ComponentCycle,
		log.FieldOperation, log.OpCreate,
		log.FieldPersonID, personID,
		log.FieldTriggerDate, trigger.String(),
		"exception_id", exc.ID)
	return &exc, nil
}

// DeleteException removes a declared exception by id.
func (s *CycleService) DeleteException(ctx context.Context, personID, exceptionID string) error {
	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("delete exception for %s: %w", personID, err)
	}

	updated := person.Clone()
	kept := updated.Exceptions[:0]
	found := false
	for _, e := range updated.Exceptions {
		if e.ID == exceptionID {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrExceptionNotFound, exceptionID)
	}
	updated.Exceptions = kept

	if err := s.repo.SavePerson(ctx, updated); err != nil {
		return fmt.Errorf("save person %s: %w", personID, err)
	}

	slog.InfoContext(ctx, "Exception deleted",
		log.FieldComponent, log.ComponentCycle,
		log.FieldOperation, log.OpDelete,
		log.FieldPersonID, personID,
		"exception_id", exceptionID)
	return nil
}

// ClosePeriod completes the person's current period at end, opens the next
// one, and publishes a close-out report message. Closing is a no-op for a
// person with no cycle configuration.
func (s *CycleService) ClosePeriod(ctx context.Context, personID string, end core.Date) error {
	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return fmt.Errorf("close period for %s: %w", personID, err)
	}

	updated, err := s.calendar.ClosePeriod(*person, end)
	if err != nil {
		return fmt.Errorf("close period for %s: %w", personID, err)
	}

	closed, ok := closedPeriodEndingAt(*person, updated, end)
	if !ok {
		slog.WarnContext(ctx, "Close period had no effect",
			log.FieldComponent, log.ComponentCycle,
			log.FieldPersonID, personID,
			"end", end.String())
		return nil
	}

	if err := s.repo.SavePerson(ctx, updated); err != nil {
		return fmt.Errorf("save person %s: %w", personID, err)
	}

	spent, err := s.spentInClosedPeriod(ctx, *person, closed)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to compute close-out total",
			log.FieldComponent, log.ComponentCycle,
			log.FieldPersonID, personID,
			log.FieldError, err.Error())
		spent = core.Money{}
	}

	if err := s.publishPeriodClosed(ctx, updated, closed, spent); err != nil {
		slog.ErrorContext(ctx, "Failed to publish period closed message",
			log.FieldComponent, log.ComponentCycle,
			log.FieldPersonID, personID,
			log.FieldError, err.Error())
		// The close is already persisted; reporting is best effort.
	}

	fields := log.NewFields().
		WithComponent(log.ComponentCycle).
		WithOperation(log.OpClose).
		WithPerson(personID).
		WithWindow(closed.Start.String(), closed.End.String())
	slog.InfoContext(ctx, "Period closed",
		append(fields.ToSlice(), log.FieldAmountCents, spent.Cents)...)
	return nil
}

// BudgetSpend is the aggregation result for one budget over its owner's
// active period.
type BudgetSpend struct {
	Spent  core.Money
	Budget core.Money
	Window cycle.Window
}

// Remaining returns the unspent part of the budget; negative when overspent.
func (b BudgetSpend) Remaining() core.Money {
	return core.Money{Cents: b.Budget.Cents - b.Spent.Cents}
}

// SpentForBudget aggregates the spend that counts against the budget within
// the owner's active period at ref.
func (s *CycleService) SpentForBudget(ctx context.Context, budgetID string, ref core.Date) (BudgetSpend, error) {
	budget, err := s.repo.GetBudget(ctx, budgetID)
	if err != nil {
		return BudgetSpend{}, fmt.Errorf("spent for budget %s: %w", budgetID, err)
	}

	res, err := s.ResolveActivePeriod(ctx, budget.OwnerPersonID, ref)
	if err != nil {
		return BudgetSpend{}, err
	}

	txs, err := s.repo.TransactionsInWindow(ctx, res.Window.Start, res.Window.End)
	if err != nil {
		return BudgetSpend{}, fmt.Errorf("spent for budget %s: %w", budgetID, err)
	}

	membership, err := s.membershipResolver(ctx)
	if err != nil {
		return BudgetSpend{}, err
	}

	return BudgetSpend{
		Spent:  cycle.SpentForBudget(*budget, txs, res.Window, membership, nil),
		Budget: budget.Amount,
		Window: res.Window,
	}, nil
}

func (s *CycleService) spentInClosedPeriod(ctx context.Context, p core.Person, closed core.Period) (core.Money, error) {
	w := cycle.Window{Start: closed.Start, End: closed.End}
	txs, err := s.repo.TransactionsInWindow(ctx, w.Start, w.End)
	if err != nil {
		return core.Money{}, fmt.Errorf("transactions for close-out: %w", err)
	}
	membership, err := s.membershipResolver(ctx)
	if err != nil {
		return core.Money{}, err
	}
	return cycle.SpentForPerson(p.ID, txs, w, membership, nil), nil
}

func (s *CycleService) membershipResolver(ctx context.Context) (cycle.AccountMembership, error) {
	members, err := s.repo.AccountMemberships(ctx)
	if err != nil {
		return nil, fmt.Errorf("load account memberships: %w", err)
	}
	return func(accountID string) []string { return members[accountID] }, nil
}

func (s *CycleService) publishPeriodClosed(ctx context.Context, p core.Person, closed core.Period, spent core.Money) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping period closed message")
		return nil
	}
	msg := amqp.NewPeriodClosedMessage(p.ID, p.Name, closed.Start, closed.End, spent.Cents)
	return s.amqpClient.PublishPeriodClosed(ctx, msg)
}

// closedPeriodEndingAt finds the period that the close operation completed:
// closed in the updated person, ending at end, and not closed before.
func closedPeriodEndingAt(before, after core.Person, end core.Date) (core.Period, bool) {
	for _, period := range after.Periods {
		if period.IsOpen() || !period.End.Equal(end.Time) {
			continue
		}
		wasClosed := false
		for _, prev := range before.Periods {
			if !prev.IsOpen() && prev.Start.Equal(period.Start.Time) {
				wasClosed = true
				break
			}
		}
		if !wasClosed {
			return period, true
		}
	}
	return core.Period{}, false
}

// Close closes both storage and AMQP connections
func (s *CycleService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close cycle service: %v", errs)
	}
	return nil
}

func newExceptionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("exc-%d", time.Now().UnixNano())
	}
	return "exc-" + hex.EncodeToString(buf)
}
