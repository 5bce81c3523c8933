package budget

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
)

// =============================================================================
// TIMELINE - Running balance over events ordered by actual date
// =============================================================================

// Entry is one balance movement.
type Entry struct {
	Date    engine.Date
	Delta   decimal.Decimal
	EventID engine.EventID
	Name    string
}

// Point is the end-of-day balance on Date.
type Point struct {
	Date    engine.Date
	Balance decimal.Decimal
}

// Shortfall is the first moment the balance drops below zero.
type Shortfall struct {
	Date    engine.Date
	EventID engine.EventID
	Balance decimal.Decimal
}

// Timeline applies events to an opening balance in ActualDate order.
// Events on the same day keep their generation order.
type Timeline struct {
	Opening decimal.Decimal
	Entries []Entry
}

// NewTimeline builds a timeline. events is not modified.
func NewTimeline(opening decimal.Decimal, events []engine.CalendarEvent) *Timeline {
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, Entry{
			Date:    e.ActualDate,
			Delta:   Delta(e),
			EventID: e.ID,
			Name:    e.Name,
		})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Date.Time.Unix(), b.Date.Time.Unix())
	})
	return &Timeline{Opening: opening, Entries: entries}
}

// BalanceAt returns the balance at the end of day at.
func (t *Timeline) BalanceAt(at engine.Date) decimal.Decimal {
	balance := t.Opening
	for _, e := range t.Entries {
		if e.Date.After(at) {
			break
		}
		balance = balance.Add(e.Delta)
	}
	return balance
}

// Closing is the balance after every entry.
func (t *Timeline) Closing() decimal.Decimal {
	balance := t.Opening
	for _, e := range t.Entries {
		balance = balance.Add(e.Delta)
	}
	return balance
}

// FirstShortfall returns the first entry that leaves the balance negative,
// or nil if the balance never goes below zero.
func (t *Timeline) FirstShortfall() *Shortfall {
	balance := t.Opening
	for _, e := range t.Entries {
		balance = balance.Add(e.Delta)
		if balance.IsNegative() {
			return &Shortfall{Date: e.Date, EventID: e.EventID, Balance: balance}
		}
	}
	return nil
}

// Points returns one end-of-day balance per day in [from, to].
func (t *Timeline) Points(from, to engine.Date) []Point {
	var points []Point
	balance := t.Opening
	i := 0
	for day := from; !day.After(to); day = day.AddDays(1) {
		for i < len(t.Entries) && !t.Entries[i].Date.After(day) {
			balance = balance.Add(t.Entries[i].Delta)
			i++
		}
		points = append(points, Point{Date: day, Balance: balance})
	}
	return points
}
