package loans

import (
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
)

// =============================================================================
// WHAT-IF SCENARIOS
// =============================================================================

// Change is a hypothetical edit to one loan. Nil fields leave the loan as is.
type Change struct {
	LoanID         engine.RecordID
	MonthlyPayment *decimal.Decimal
	InterestRate   *decimal.Decimal
	LumpSum        *decimal.Decimal // one-off payment applied to the balance now
	Exclude        bool             // simulate as if the loan were closed
}

// Comparison is the baseline portfolio against the changed one.
type Comparison struct {
	Baseline PayoffSummary
	Scenario PayoffSummary

	// MonthsSaved and InterestSaved are only set when both portfolios pay off.
	MonthsSaved   int
	InterestSaved decimal.Decimal
}

// WhatIf applies changes to copies of loans and compares payoff summaries.
// Changes naming unknown loans are ignored. loans is never modified.
func WhatIf(loans []engine.Loan, changes []Change, asOf engine.Date) Comparison {
	byID := make(map[engine.RecordID]Change, len(changes))
	for _, c := range changes {
		byID[c.LoanID] = c
	}

	scenario := make([]engine.Loan, 0, len(loans))
	for _, loan := range loans {
		if c, ok := byID[loan.ID]; ok {
			if c.Exclude {
				continue
			}
			loan = apply(loan, c)
		}
		scenario = append(scenario, loan)
	}

	cmp := Comparison{
		Baseline:      CalculatePayoffSummary(loans, asOf),
		Scenario:      CalculatePayoffSummary(scenario, asOf),
		InterestSaved: decimal.Zero,
	}
	if cmp.Baseline.NeverPaysOff || cmp.Scenario.NeverPaysOff {
		return cmp
	}
	cmp.MonthsSaved = cmp.Baseline.TotalMonths - cmp.Scenario.TotalMonths
	cmp.InterestSaved = totalInterest(loans).Sub(totalInterest(scenario))
	return cmp
}

func apply(loan engine.Loan, c Change) engine.Loan {
	if c.MonthlyPayment != nil {
		loan.MonthlyPayment = *c.MonthlyPayment
	}
	if c.InterestRate != nil {
		loan.InterestRate = *c.InterestRate
	}
	if c.LumpSum != nil {
		loan.CurrentBalance = decimal.Max(loan.CurrentBalance.Sub(*c.LumpSum), decimal.Zero)
	}
	return loan
}

func totalInterest(loans []engine.Loan) decimal.Decimal {
	total := decimal.Zero
	for _, loan := range loans {
		if loan.Active {
			total = total.Add(simulate(loan, nil).interest)
		}
	}
	return total
}
