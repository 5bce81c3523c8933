/*
amortization.go - Loan payoff simulation

PURPOSE:
  Projects loan balances forward under monthly compounding and a fixed
  monthly payment, and summarizes a whole loan portfolio: total debt,
  total monthly outflow, and the month the last loan is paid off.

SIMULATION:
  monthlyRate = annualRate / 12 / 100
  each month:  balance = balance + balance*monthlyRate - payment
  stop when:   balance <= 0, or MaxMonths elapsed

NEVER PAYS OFF:
  A payment that does not exceed the first month's interest can never
  shrink the balance. Such loans, and loans still owing after MaxMonths,
  are flagged NeverPaysOff instead of failing. One such loan makes the
  whole portfolio unpayable: PayoffDate becomes CannotBeRepaid.

PORTFOLIO:
  TotalMonths is the MAXIMUM over loans, not the sum. Loans are paid in
  parallel, so the portfolio is clear when its slowest loan is.

EXAMPLE:
  Loans 300 @0% paying 100 (3 months) and 1000 @0% paying 100 (10 months)
  as of 2024-05-15 -> TotalMonths 10, PayoffDate 2025-03.

DETERMINISM:
  The reference date is a parameter and inputs are never modified, so
  what-if scenarios can call these functions repeatedly.

SEE ALSO:
  - whatif.go: Scenario comparison built on CalculatePayoffSummary
  - engine/records.go: Loan
*/
package loans

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
)

// MaxMonths is the simulation ceiling (50 years).
const MaxMonths = 600

// Infinite is the month count reported for loans that never pay off.
const Infinite = -1

// balancePlaces bounds the scale of the running balance between iterations.
const balancePlaces = 10

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// =============================================================================
// PAYOFF DATE
// =============================================================================

// PayoffMonth is the month a debt is cleared, or CannotBeRepaid.
type PayoffMonth struct {
	At    engine.Month
	never bool
}

// CannotBeRepaid is the payoff date of a portfolio with a loan that never
// pays off.
var CannotBeRepaid = PayoffMonth{never: true}

func (p PayoffMonth) IsNever() bool { return p.never }

func (p PayoffMonth) String() string {
	if p.never {
		return "never"
	}
	return p.At.Key()
}

func (p PayoffMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// =============================================================================
// PORTFOLIO SUMMARY
// =============================================================================

type PayoffSummary struct {
	TotalBalance decimal.Decimal
	MonthlyTotal decimal.Decimal
	PayoffDate   PayoffMonth
	TotalMonths  int // Infinite when NeverPaysOff
	NeverPaysOff bool
}

// CalculatePayoffSummary summarizes the active loans as of asOf.
func CalculatePayoffSummary(loans []engine.Loan, asOf engine.Date) PayoffSummary {
	summary := PayoffSummary{
		TotalBalance: decimal.Zero,
		MonthlyTotal: decimal.Zero,
	}

	for _, loan := range loans {
		if !loan.Active {
			continue
		}
		summary.TotalBalance = summary.TotalBalance.Add(loan.CurrentBalance)
		summary.MonthlyTotal = summary.MonthlyTotal.Add(loan.MonthlyPayment)

		if summary.NeverPaysOff {
			continue
		}
		months, ok := MonthsToPayoff(loan)
		if !ok {
			summary.NeverPaysOff = true
			continue
		}
		if months > summary.TotalMonths {
			summary.TotalMonths = months
		}
	}

	if summary.NeverPaysOff {
		summary.TotalMonths = Infinite
		summary.PayoffDate = CannotBeRepaid
		return summary
	}
	summary.PayoffDate = PayoffMonth{At: asOf.YearMonth().Add(summary.TotalMonths)}
	return summary
}

// MonthsToPayoff simulates one loan. ok is false when the loan never pays
// off, including when MaxMonths is reached with a balance still owing.
func MonthsToPayoff(loan engine.Loan) (months int, ok bool) {
	s := simulate(loan, nil)
	return s.months, !s.never
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualPercent decimal.Decimal) decimal.Decimal {
	return annualPercent.Div(twelve).Div(hundred)
}

// =============================================================================
// SIMULATION
// =============================================================================

type simulation struct {
	months   int
	never    bool
	interest decimal.Decimal
	paid     decimal.Decimal
}

// simulate runs the amortization loop, calling row for every simulated month
// when row is non-nil.
func simulate(loan engine.Loan, row func(ScheduleRow)) simulation {
	s := simulation{interest: decimal.Zero, paid: decimal.Zero}

	balance := loan.CurrentBalance
	if !balance.IsPositive() {
		return s
	}

	rate := MonthlyRate(loan.InterestRate)
	payment := loan.MonthlyPayment
	if payment.LessThanOrEqual(balance.Mul(rate)) {
		s.never = true
		s.months = Infinite
		return s
	}

	for balance.IsPositive() && s.months < MaxMonths {
		interest := balance.Mul(rate).Round(balancePlaces)
		due := balance.Add(interest)
		paid := decimal.Min(payment, due)

		balance = due.Sub(payment)
		s.months++
		s.interest = s.interest.Add(interest)
		s.paid = s.paid.Add(paid)

		if row != nil {
			row(ScheduleRow{
				Number:    s.months,
				Interest:  interest,
				Principal: paid.Sub(interest),
				Payment:   paid,
				Remaining: decimal.Max(balance, decimal.Zero),
			})
		}
	}

	if balance.IsPositive() {
		s.never = true
		s.months = Infinite
	}
	return s
}
