/*
generator.go - Month event generation

PURPOSE:
  Expands the active source records into the calendar events of one month.
  Generation is a pure function of (records, year, month): it never reads
  the clock, and identical input always produces identical output in the
  same order.

FILTERS:
  Items:   active, not a bank account, window overlaps the month
  Loans:   active, balance still outstanding (no window)
  Clients: active, window overlaps the month

EVENT IDENTITY:
  {sourceId}-{year}-{month}-{occurrenceIndex}, for example "rent-2024-5-0".
  The index counts a record's dates within the month, so a weekly rule
  yields rent-2024-5-0 .. rent-2024-5-4. IDs are stable across regeneration,
  which is what lets MergeRegenerated carry external links forward.

ORDER:
  Items, then loans, then clients, each in input order; a record's own
  dates ascend.

SEE ALSO:
  - rule.go: ResolveDates
  - ledger.go: Stores the result and applies the merge
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentPrefix is prepended to a loan's name on its repayment events.
const RepaymentPrefix = "repayment: "

// GenerateMonthEvents returns the month's events for all participating records.
func GenerateMonthEvents(items []BudgetItem, loans []Loan, clients []Client, year int, month time.Month) []CalendarEvent {
	m := Month{Year: year, Month: month}
	var events []CalendarEvent

	for _, item := range items {
		if !item.Active || item.Category == CategoryBank || !item.Window.Includes(m) {
			continue
		}
		events = appendOccurrences(events, m, occurrence{
			sourceID: item.ID,
			kind:     KindItem,
			name:     item.Name,
			category: item.Category,
			amount:   item.Amount,
			rule:     item.RuleOrLegacy(),
		})
	}

	for _, loan := range loans {
		if !loan.Active || !loan.CurrentBalance.IsPositive() {
			continue
		}
		events = appendOccurrences(events, m, occurrence{
			sourceID: loan.ID,
			kind:     KindLoan,
			name:     RepaymentPrefix + loan.Name,
			category: CategoryExpense,
			amount:   loan.MonthlyPayment,
			rule:     loan.RuleOrLegacy(),
		})
	}

	for _, client := range clients {
		if !client.Active || !client.Window.Includes(m) {
			continue
		}
		events = appendOccurrences(events, m, occurrence{
			sourceID: client.ID,
			kind:     KindClient,
			name:     client.Name,
			category: CategoryIncome,
			amount:   client.Amount,
			rule:     client.RuleOrLegacy(),
		})
	}

	return events
}

// EventIDFor builds the deterministic ID of a record's index-th occurrence in m.
func EventIDFor(sourceID RecordID, m Month, index int) EventID {
	return EventID(fmt.Sprintf("%s-%d-%d-%d", sourceID, m.Year, int(m.Month), index))
}

type occurrence struct {
	sourceID RecordID
	kind     SourceKind
	name     string
	category Category
	amount   decimal.Decimal
	rule     Rule
}

func appendOccurrences(events []CalendarEvent, m Month, o occurrence) []CalendarEvent {
	for i, d := range ResolveDates(o.rule, m.Year, m.Month) {
		events = append(events, CalendarEvent{
			ID:           EventIDFor(o.sourceID, m, i),
			Period:       m,
			SourceID:     o.sourceID,
			SourceKind:   o.kind,
			Name:         o.name,
			Category:     o.category,
			Amount:       o.amount,
			OriginalDate: d,
			ActualDate:   d,
			Penalty:      decimal.Zero,
			Status:       StatusPending,
		})
	}
	return events
}

// =============================================================================
// REGENERATION MERGE
// =============================================================================

// MergeRegenerated carries external link IDs from prior events onto fresh
// events with the same ID. Fresh events without a prior match keep no link.
// Neither input slice is modified.
func MergeRegenerated(prior, fresh []CalendarEvent) []CalendarEvent {
	links := make(map[EventID]string, len(prior))
	for _, e := range prior {
		if e.ExternalLinkID != "" {
			links[e.ID] = e.ExternalLinkID
		}
	}

	merged := make([]CalendarEvent, len(fresh))
	for i, e := range fresh {
		e.ExternalLinkID = links[e.ID]
		merged[i] = e
	}
	return merged
}
