package budget_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-planner/budget"
	"github.com/warp/cashflow-planner/engine"
)

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var may = engine.Month{Year: 2024, Month: time.May}

func event(id string, cat engine.Category, amount int64, date string) engine.CalendarEvent {
	d := engine.MustParseDate(date)
	return engine.CalendarEvent{
		ID: engine.EventID(id), Period: may, Name: id, Category: cat,
		Amount: money(amount), OriginalDate: d, ActualDate: d,
		Penalty: decimal.Zero, Status: engine.StatusPending,
	}
}

func paidLate(e engine.CalendarEvent, actual string, penalty int64) engine.CalendarEvent {
	e.Status = engine.StatusPaid
	e.ActualDate = engine.MustParseDate(actual)
	e.Penalty = money(penalty)
	return e
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestMonthSummary(t *testing.T) {
	events := []engine.CalendarEvent{
		event("salary", engine.CategoryIncome, 5000, "2024-05-25"),
		paidLate(event("rent", engine.CategoryExpense, 1200, "2024-05-01"), "2024-05-06", 6),
		event("phone", engine.CategoryExpense, -40, "2024-05-20"), // signed entry
	}

	s := budget.MonthSummary(may, events)

	assert.True(t, s.Income.Equal(money(5000)))
	assert.True(t, s.Expense.Equal(money(1240)))
	assert.True(t, s.Penalties.Equal(money(6)))
	assert.True(t, s.Net.Equal(money(3754)), "got %s", s.Net)
	assert.Equal(t, 3, s.Events)
	assert.Equal(t, 1, s.Paid)
	assert.Equal(t, 2, s.Pending)
	assert.Equal(t, 1, s.Late)
}

func TestBankBalance(t *testing.T) {
	items := []engine.BudgetItem{
		{ID: "checking", Category: engine.CategoryBank, CurrentBalance: money(1500), Active: true},
		{ID: "savings", Category: engine.CategoryBank, CurrentBalance: money(3000), Active: true},
		{ID: "old", Category: engine.CategoryBank, CurrentBalance: money(999), Active: false},
		{ID: "rent", Category: engine.CategoryExpense, Amount: money(1200), Active: true},
	}
	assert.True(t, budget.BankBalance(items).Equal(money(4500)))
}

// =============================================================================
// TIMELINE
// =============================================================================

func TestTimeline_OrdersByActualDate(t *testing.T) {
	// GIVEN: Rent generated first but paid after the salary arrived
	events := []engine.CalendarEvent{
		paidLate(event("rent", engine.CategoryExpense, 1200, "2024-05-01"), "2024-05-26", 25),
		event("salary", engine.CategoryIncome, 1000, "2024-05-25"),
	}

	tl := budget.NewTimeline(money(300), events)

	require.Len(t, tl.Entries, 2)
	assert.Equal(t, engine.EventID("salary"), tl.Entries[0].EventID)

	assert.True(t, tl.BalanceAt(engine.MustParseDate("2024-05-24")).Equal(money(300)))
	assert.True(t, tl.BalanceAt(engine.MustParseDate("2024-05-25")).Equal(money(1300)))
	assert.True(t, tl.Closing().Equal(money(75)))
	assert.Nil(t, tl.FirstShortfall())
}

func TestTimeline_FirstShortfall(t *testing.T) {
	events := []engine.CalendarEvent{
		event("rent", engine.CategoryExpense, 1200, "2024-05-01"),
		event("salary", engine.CategoryIncome, 5000, "2024-05-25"),
	}

	tl := budget.NewTimeline(money(1000), events)
	short := tl.FirstShortfall()

	require.NotNil(t, short)
	assert.Equal(t, "2024-05-01", short.Date.String())
	assert.Equal(t, engine.EventID("rent"), short.EventID)
	assert.True(t, short.Balance.Equal(money(-200)))
}

func TestTimeline_Points(t *testing.T) {
	events := []engine.CalendarEvent{
		event("rent", engine.CategoryExpense, 100, "2024-05-02"),
		event("gig", engine.CategoryIncome, 50, "2024-05-02"),
	}
	tl := budget.NewTimeline(money(500), events)

	points := tl.Points(may.Start(), may.Start().AddDays(2))
	require.Len(t, points, 3)
	assert.True(t, points[0].Balance.Equal(money(500)))
	assert.True(t, points[1].Balance.Equal(money(450)))
	assert.True(t, points[2].Balance.Equal(money(450)))
	assert.Equal(t, "2024-05-03", points[2].Date.String())
}

func TestTimeline_DoesNotMutateEvents(t *testing.T) {
	events := []engine.CalendarEvent{
		event("b", engine.CategoryExpense, 1, "2024-05-20"),
		event("a", engine.CategoryExpense, 1, "2024-05-10"),
	}
	budget.NewTimeline(decimal.Zero, events)
	assert.Equal(t, engine.EventID("b"), events[0].ID)
}
