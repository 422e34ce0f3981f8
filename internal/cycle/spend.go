package cycle

import (
	"wealthpillar/internal/core"
)

// AccountMembership resolves an account ID to the persons who share it.
// Membership is an external collaborator concept consumed read-only here.
type AccountMembership func(accountID string) []string

// EffectiveAmountFunc returns the amount a transaction contributes to spend.
// Reconciliation semantics live outside the engine, so the substitution is
// injected.
type EffectiveAmountFunc func(core.Transaction) core.Money

// DefaultEffectiveAmount substitutes the remaining-balance amount for
// reconciled transactions and uses the nominal amount otherwise.
func DefaultEffectiveAmount(t core.Transaction) core.Money {
	if t.IsReconciled {
		return t.RemainingAmount
	}
	return t.Amount
}

// SpentForBudget sums the effective amounts of the transactions that count
// against the budget within the window: expense-kind only, category in the
// budget's set, dated inside the window, and booked on an account the budget
// owner is a member of. Transfers never count, even if their category were to
// match. Returns zero for an empty result.
func SpentForBudget(b core.Budget, txs []core.Transaction, w Window, membership AccountMembership, effective EffectiveAmountFunc) core.Money {
	if effective == nil {
		effective = DefaultEffectiveAmount
	}

	var total core.Money
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		if t.Category == "transfer" {
			continue
		}
		if !b.CoversCategory(t.Category) {
			continue
		}
		if !w.Contains(t.Date) {
			continue
		}
		if membership != nil && !memberOf(membership(t.AccountID), b.OwnerPersonID) {
			continue
		}
		total = total.Add(effective(t))
	}
	return total
}

// SpentForPerson sums the effective expense amounts booked in the window on
// accounts the person is a member of, across all categories. Used for the
// close-out total of a period.
func SpentForPerson(personID string, txs []core.Transaction, w Window, membership AccountMembership, effective EffectiveAmountFunc) core.Money {
	if effective == nil {
		effective = DefaultEffectiveAmount
	}

	var total core.Money
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		if t.Category == "transfer" {
			continue
		}
		if !w.Contains(t.Date) {
			continue
		}
		if membership != nil && !memberOf(membership(t.AccountID), personID) {
			continue
		}
		total = total.Add(effective(t))
	}
	return total
}

func memberOf(ids []string, personID string) bool {
	for _, id := range ids {
		if id == personID {
			return true
		}
	}
	return false
}
