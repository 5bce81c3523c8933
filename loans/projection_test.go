package loans_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/loans"
)

func TestProjectLoan_Schedule(t *testing.T) {
	p := loans.ProjectLoan(loan("small", "1000", "12", "500"), asOf)

	require.False(t, p.NeverPaysOff)
	require.Len(t, p.Schedule, 3)
	assert.Equal(t, 3, p.Months)
	assert.Equal(t, "2024-08", p.PayoffDate.String())

	first := p.Schedule[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "2024-06", first.Period.Key())
	assert.True(t, first.Interest.Equal(d("10")), "got %s", first.Interest)
	assert.True(t, first.Principal.Equal(d("490")))
	assert.True(t, first.Remaining.Equal(d("510")))

	last := p.Schedule[2]
	assert.True(t, last.Payment.Equal(d("15.251")), "final payment capped, got %s", last.Payment)
	assert.True(t, last.Remaining.IsZero())

	assert.True(t, p.TotalInterest.Equal(d("15.251")), "got %s", p.TotalInterest)
	assert.True(t, p.TotalPaid.Equal(d("1015.251")), "got %s", p.TotalPaid)
}

func TestProjectLoan_Never(t *testing.T) {
	p := loans.ProjectLoan(loan("card", "100000", "24", "1500"), asOf)
	assert.True(t, p.NeverPaysOff)
	assert.Equal(t, loans.Infinite, p.Months)
	assert.True(t, p.PayoffDate.IsNever())
	assert.Empty(t, p.Schedule)
}

func TestProjectLoan_AlreadyPaidOff(t *testing.T) {
	p := loans.ProjectLoan(loan("done", "0", "5", "100"), asOf)
	assert.False(t, p.NeverPaysOff)
	assert.Equal(t, 0, p.Months)
	assert.Equal(t, "2024-05", p.PayoffDate.String())
}

func TestUtilization(t *testing.T) {
	card := loan("card", "2500", "19.9", "100")
	card.MaxLimit = decimal.NewFromInt(10000)

	ratio, ok := loans.Utilization(card)
	require.True(t, ok)
	assert.True(t, ratio.Equal(d("0.25")))

	_, ok = loans.Utilization(loan("car", "5000", "6", "300"))
	assert.False(t, ok, "installment loans have no limit")
}

// =============================================================================
// WHAT-IF
// =============================================================================

func TestWhatIf_HigherPayment(t *testing.T) {
	portfolio := []engine.Loan{loan("long", "1000", "0", "100")}
	payment := d("200")

	cmp := loans.WhatIf(portfolio, []loans.Change{{LoanID: "long", MonthlyPayment: &payment}}, asOf)

	assert.Equal(t, 10, cmp.Baseline.TotalMonths)
	assert.Equal(t, 5, cmp.Scenario.TotalMonths)
	assert.Equal(t, 5, cmp.MonthsSaved)
	assert.True(t, portfolio[0].MonthlyPayment.Equal(d("100")), "input not mutated")
}

func TestWhatIf_RescuesNeverLoan(t *testing.T) {
	portfolio := []engine.Loan{loan("card", "100000", "24", "1500")}
	payment := d("5000")

	cmp := loans.WhatIf(portfolio, []loans.Change{{LoanID: "card", MonthlyPayment: &payment}}, asOf)

	assert.True(t, cmp.Baseline.NeverPaysOff)
	assert.False(t, cmp.Scenario.NeverPaysOff)
	assert.Equal(t, 0, cmp.MonthsSaved)
}

func TestWhatIf_LumpSumAndExclude(t *testing.T) {
	portfolio := []engine.Loan{
		loan("car", "5000", "6", "300"),
		loan("long", "1000", "0", "100"),
	}
	lump := d("10000")

	cmp := loans.WhatIf(portfolio, []loans.Change{
		{LoanID: "car", LumpSum: &lump},
		{LoanID: "long", Exclude: true},
		{LoanID: "unknown", Exclude: true},
	}, asOf)

	assert.Equal(t, 0, cmp.Scenario.TotalMonths)
	assert.True(t, cmp.Scenario.TotalBalance.IsZero())
	assert.True(t, cmp.InterestSaved.IsPositive())
	assert.Len(t, portfolio, 2)
	assert.True(t, portfolio[0].CurrentBalance.Equal(d("5000")))
}
