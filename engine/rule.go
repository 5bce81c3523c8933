/*
rule.go - Recurrence rules and date resolution

PURPOSE:
  Turns a declarative "when does this happen" rule into the concrete calendar
  dates it falls on inside one month. Every generated calendar event starts
  here.

RULE KINDS:
  monthly(day)              once, on min(day, daysInMonth)
  monthEnd                  once, on the last day of the month
  weekly(weekday)           every matching weekday of the month
  monthlyBusinessDay(nth)   the nth Monday-Friday counted from the 1st
  nextMonthDay(day)         resolves exactly like monthly; the kind only
                            records that the due date belongs to a purchase
                            made the month before

WEEKEND ADJUSTMENT:
  Applied after resolution, except for weekly rules (weekly rules already
  name their weekday).
    AdjustPrevious: Saturday -> Friday (-1), Sunday -> Friday (-2)
    AdjustNext:     Saturday -> Monday (+2), Sunday -> Monday (+1)
  The shifted date is not clamped, so a month-start Sunday moved back lands
  in the previous month.

UNKNOWN RULES:
  An unknown kind resolves to no dates. A record with a rule written by a
  newer client simply schedules nothing; generation of the rest of the month
  continues.

EXAMPLE:
  rule := Rule{Kind: RuleMonthly, Day: 25, Adjustment: AdjustPrevious}
  dates := ResolveDates(rule, 2024, time.August)
  // [2024-08-23] - the 25th is a Sunday

SEE ALSO:
  - generator.go: Consumes ResolveDates for every source record
  - records.go: Legacy day fields that fall back to monthly rules
*/
package engine

import "time"

// =============================================================================
// RULE
// =============================================================================

// RuleKind discriminates the recurrence rule variants.
type RuleKind string

const (
	RuleMonthly            RuleKind = "monthly"
	RuleMonthEnd           RuleKind = "monthEnd"
	RuleWeekly             RuleKind = "weekly"
	RuleMonthlyBusinessDay RuleKind = "monthlyBusinessDay"
	RuleNextMonthDay       RuleKind = "nextMonthDay"
)

// WeekendAdjustment moves a resolved date off Saturday/Sunday.
type WeekendAdjustment string

const (
	AdjustNone     WeekendAdjustment = "none"
	AdjustPrevious WeekendAdjustment = "toPreviousWeekday"
	AdjustNext     WeekendAdjustment = "toNextWeekday"
)

// Rule is a tagged variant: Kind selects which of Day, Weekday or Nth is read.
type Rule struct {
	Kind RuleKind

	// Day of month for monthly and nextMonthDay (1-31).
	Day int

	// Weekday for weekly rules.
	Weekday time.Weekday

	// Nth business day for monthlyBusinessDay (1-based).
	Nth int

	Adjustment WeekendAdjustment
}

// Monthly is shorthand for a monthly(day) rule without weekend adjustment.
func Monthly(day int) Rule { return Rule{Kind: RuleMonthly, Day: day, Adjustment: AdjustNone} }

// Weekly is shorthand for a weekly(weekday) rule.
func Weekly(wd time.Weekday) Rule { return Rule{Kind: RuleWeekly, Weekday: wd, Adjustment: AdjustNone} }

// MonthEnd is shorthand for a monthEnd rule.
func MonthEnd() Rule { return Rule{Kind: RuleMonthEnd, Adjustment: AdjustNone} }

// BusinessDay is shorthand for a monthlyBusinessDay(nth) rule.
func BusinessDay(nth int) Rule { return Rule{Kind: RuleMonthlyBusinessDay, Nth: nth, Adjustment: AdjustNone} }

// WithAdjustment returns a copy of the rule with the given weekend adjustment.
func (r Rule) WithAdjustment(adj WeekendAdjustment) Rule {
	r.Adjustment = adj
	return r
}

// IsKnown reports whether this build can resolve the rule's kind.
func (r Rule) IsKnown() bool {
	switch r.Kind {
	case RuleMonthly, RuleMonthEnd, RuleWeekly, RuleMonthlyBusinessDay, RuleNextMonthDay:
		return true
	default:
		return false
	}
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveDates returns the dates the rule falls on in year/month, ascending.
// The result is empty for unknown kinds and for business-day rules whose nth
// exceeds the month's business days.
func ResolveDates(rule Rule, year int, month time.Month) []Date {
	m := Month{Year: year, Month: month}
	daysInMonth := m.Days()

	switch rule.Kind {
	case RuleMonthly, RuleNextMonthDay:
		day := clampDay(rule.Day, daysInMonth)
		return []Date{AdjustForWeekend(NewDate(year, month, day), rule.Adjustment)}

	case RuleMonthEnd:
		return []Date{AdjustForWeekend(m.End(), rule.Adjustment)}

	case RuleWeekly:
		return weeklyDates(m, rule.Weekday)

	case RuleMonthlyBusinessDay:
		d, ok := nthBusinessDay(m, rule.Nth)
		if !ok {
			return nil
		}
		return []Date{AdjustForWeekend(d, rule.Adjustment)}

	default:
		return nil
	}
}

// AdjustForWeekend shifts Saturday/Sunday according to adj. Weekdays and
// AdjustNone pass through, so applying it twice changes nothing.
func AdjustForWeekend(d Date, adj WeekendAdjustment) Date {
	switch d.Weekday() {
	case time.Saturday:
		switch adj {
		case AdjustPrevious:
			return d.AddDays(-1)
		case AdjustNext:
			return d.AddDays(2)
		}
	case time.Sunday:
		switch adj {
		case AdjustPrevious:
			return d.AddDays(-2)
		case AdjustNext:
			return d.AddDays(1)
		}
	}
	return d
}

func weeklyDates(m Month, wd time.Weekday) []Date {
	var dates []Date
	first := m.Start()
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	for d := first.AddDays(offset); d.Month() == m.Month; d = d.AddDays(7) {
		dates = append(dates, d)
	}
	return dates
}

func nthBusinessDay(m Month, nth int) (Date, bool) {
	if nth < 1 {
		return Date{}, false
	}
	count := 0
	for day := 1; day <= m.Days(); day++ {
		d := NewDate(m.Year, m.Month, day)
		if d.IsWeekend() {
			continue
		}
		count++
		if count == nth {
			return d, true
		}
	}
	return Date{}, false
}

// clampDay keeps day inside [1, daysInMonth]; day 31 in February is the 28th/29th.
func clampDay(day, daysInMonth int) int {
	if day < 1 {
		return 1
	}
	if day > daysInMonth {
		return daysInMonth
	}
	return day
}
