package loans

import (
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
)

// =============================================================================
// PER-LOAN PROJECTION
// =============================================================================

// ScheduleRow is one simulated month of a loan. Number is 1-based; Period
// is the calendar month it falls in.
type ScheduleRow struct {
	Number    int
	Period    engine.Month
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Payment   decimal.Decimal
	Remaining decimal.Decimal
}

// Projection is the amortization schedule of a single loan.
type Projection struct {
	LoanID        engine.RecordID
	Months        int // Infinite when NeverPaysOff
	NeverPaysOff  bool
	PayoffDate    PayoffMonth
	TotalInterest decimal.Decimal
	TotalPaid     decimal.Decimal
	Schedule      []ScheduleRow
}

// ProjectLoan simulates a loan month by month starting after asOf. The final
// payment is capped at what is still owed. A loan that never pays off has no
// schedule and zero totals.
func ProjectLoan(loan engine.Loan, asOf engine.Date) Projection {
	start := asOf.YearMonth()

	var schedule []ScheduleRow
	s := simulate(loan, func(r ScheduleRow) {
		r.Period = start.Add(r.Number)
		schedule = append(schedule, r)
	})

	p := Projection{
		LoanID:        loan.ID,
		Months:        s.months,
		NeverPaysOff:  s.never,
		TotalInterest: s.interest,
		TotalPaid:     s.paid,
		Schedule:      schedule,
	}
	if s.never {
		p.PayoffDate = CannotBeRepaid
		p.TotalInterest = decimal.Zero
		p.TotalPaid = decimal.Zero
		p.Schedule = nil
		return p
	}
	p.PayoffDate = PayoffMonth{At: start.Add(s.months)}
	return p
}

// =============================================================================
// CREDIT UTILIZATION
// =============================================================================

// Utilization is CurrentBalance / MaxLimit for revolving credit. ok is false
// when the loan has no limit.
func Utilization(loan engine.Loan) (ratio decimal.Decimal, ok bool) {
	if !loan.MaxLimit.IsPositive() {
		return decimal.Zero, false
	}
	return loan.CurrentBalance.DivRound(loan.MaxLimit, 4), true
}
