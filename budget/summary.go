/*
Package budget turns a month's calendar events into cash-flow views.

PURPOSE:
  The engine knows when things are due; this package answers "how much
  comes in and goes out" and "when does the account run dry". Everything
  here is read-only over events and records.

SIGN CONVENTION:
  Record amounts may be entered signed or unsigned. Direction comes from
  the Category alone: income adds |amount|, expense subtracts |amount|.
  A paid expense also subtracts its late penalty.

SEE ALSO:
  - timeline.go: Running balance over a month
  - engine/generator.go: Where the events come from
*/
package budget

import (
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
)

// =============================================================================
// MONTH SUMMARY
// =============================================================================

// Summary aggregates one month's events.
type Summary struct {
	Month     engine.Month
	Income    decimal.Decimal
	Expense   decimal.Decimal
	Penalties decimal.Decimal
	Net       decimal.Decimal // Income - Expense - Penalties

	Events  int
	Paid    int
	Pending int
	Late    int // paid after the scheduled date
}

// MonthSummary totals events. Penalties are counted for paid expenses only.
func MonthSummary(m engine.Month, events []engine.CalendarEvent) Summary {
	s := Summary{
		Month:     m,
		Income:    decimal.Zero,
		Expense:   decimal.Zero,
		Penalties: decimal.Zero,
		Events:    len(events),
	}

	for _, e := range events {
		switch e.Category {
		case engine.CategoryIncome:
			s.Income = s.Income.Add(e.Amount.Abs())
		case engine.CategoryExpense:
			s.Expense = s.Expense.Add(e.Amount.Abs())
			if e.IsPaid() {
				s.Penalties = s.Penalties.Add(e.Penalty)
			}
		}

		if e.IsPaid() {
			s.Paid++
			if e.IsLate() {
				s.Late++
			}
		} else {
			s.Pending++
		}
	}

	s.Net = s.Income.Sub(s.Expense).Sub(s.Penalties)
	return s
}

// Delta is an event's signed effect on the account balance.
func Delta(e engine.CalendarEvent) decimal.Decimal {
	switch e.Category {
	case engine.CategoryIncome:
		return e.Amount.Abs()
	case engine.CategoryExpense:
		d := e.Amount.Abs().Neg()
		if e.IsPaid() {
			d = d.Sub(e.Penalty)
		}
		return d
	default:
		return decimal.Zero
	}
}

// =============================================================================
// BANK BALANCE
// =============================================================================

// BankBalance sums CurrentBalance over active bank-account items. It is the
// opening balance of a cash-flow timeline.
func BankBalance(items []engine.BudgetItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Active && item.Category == engine.CategoryBank {
			total = total.Add(item.CurrentBalance)
		}
	}
	return total
}
