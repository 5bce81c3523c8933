/*
Package engine provides the core of the cashflow planner.

PURPOSE:
  Pure functions that turn recurring obligations into dated calendar events
  and compute late-payment penalties, plus the ledger contract that stores
  the events per month. The engine never reads the clock: every month and
  reference date is a parameter.

KEY CONCEPTS IN THIS FILE (records.go):
  - SourceKind: Which variant a record is (item, loan, client)
  - BudgetItem: Recurring income/expense, or a bank account balance
  - Loan: A debt repaid by a fixed monthly payment
  - Client: A receivable that pays on a schedule
  - SchemaVersion: Records written before structured rules existed carry a
    bare day-of-month; RuleOrLegacy resolves them without a migration step

DESIGN PRINCIPLES:
  1. Immutable in, immutable out: engine functions never modify records
  2. Precision: Money is decimal.Decimal
  3. Determinism: Output order follows input order

SEE ALSO:
  - rule.go: Recurrence rules and date resolution
  - generator.go: Month event generation
  - factory/record.go: JSON shapes and schema migration
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type EventID string

// SourceKind names the record variant an event was generated from.
type SourceKind string

const (
	KindItem   SourceKind = "item"
	KindLoan   SourceKind = "loan"
	KindClient SourceKind = "client"
)

// Category classifies cash flow direction.
type Category string

const (
	CategoryIncome  Category = "income"
	CategoryExpense Category = "expense"
	CategoryBank    Category = "bank" // account balance, not a recurring flow
)

// Schema versions for persisted records.
const (
	// SchemaLegacy records carry only a day-of-month integer.
	SchemaLegacy = 1
	// SchemaCurrent records carry a structured Rule.
	SchemaCurrent = 2
)

// DefaultLegacyDay is used when a legacy record has neither rule nor day.
const DefaultLegacyDay = 1

// =============================================================================
// SOURCE RECORDS
// =============================================================================

// BudgetItem is a recurring income or expense. Items of CategoryBank are
// account balances: CurrentBalance holds the balance and they never produce
// events.
type BudgetItem struct {
	ID             RecordID
	Name           string
	Category       Category
	Amount         decimal.Decimal // signed
	Rule           *Rule
	Day            int // legacy (schema 1)
	Window         Window
	Active         bool
	CurrentBalance decimal.Decimal
	SchemaVersion  int
}

// Loan is repaid by MonthlyPayment each month. InterestRate is an annual
// percentage (24 means 24%/year).
type Loan struct {
	ID             RecordID
	Name           string
	MonthlyPayment decimal.Decimal
	CurrentBalance decimal.Decimal
	InterestRate   decimal.Decimal
	MaxLimit       decimal.Decimal
	Rule           *Rule
	PaymentDay     int // legacy (schema 1)
	Active         bool
	SchemaVersion  int
}

// Client is a receivable; its events are always income.
type Client struct {
	ID            RecordID
	Name          string
	Amount        decimal.Decimal
	Rule          *Rule
	Day           int // legacy (schema 1)
	Window        Window
	Active        bool
	SchemaVersion int
}

// RuleOrLegacy returns the structured rule, or monthly(day) built from the
// legacy day field.
func (i BudgetItem) RuleOrLegacy() Rule { return ruleOrLegacy(i.Rule, i.Day) }
func (l Loan) RuleOrLegacy() Rule       { return ruleOrLegacy(l.Rule, l.PaymentDay) }
func (c Client) RuleOrLegacy() Rule     { return ruleOrLegacy(c.Rule, c.Day) }

func ruleOrLegacy(rule *Rule, day int) Rule {
	if rule != nil {
		return *rule
	}
	if day <= 0 {
		day = DefaultLegacyDay
	}
	return Monthly(day)
}

// =============================================================================
// CALENDAR EVENT - One dated occurrence of a record
// =============================================================================

type EventStatus string

const (
	StatusPending EventStatus = "pending"
	StatusPaid    EventStatus = "paid"
)

// CalendarEvent is a record's occurrence in one month. Period may differ
// from OriginalDate's month when a weekend adjustment crossed the boundary.
//
// Until MarkPaid records a different date, ActualDate equals OriginalDate
// and Penalty is zero.
type CalendarEvent struct {
	ID           EventID
	Period       Month // month the event was generated for
	SourceID     RecordID
	SourceKind   SourceKind
	Name         string
	Category     Category
	Amount       decimal.Decimal
	OriginalDate Date
	ActualDate   Date
	Penalty      decimal.Decimal
	Status       EventStatus

	// ExternalLinkID references the event in an external calendar system.
	// It survives regeneration of the month.
	ExternalLinkID string
}

// IsPaid reports whether the event has been marked paid.
func (e CalendarEvent) IsPaid() bool { return e.Status == StatusPaid }

// IsLate reports whether the event was paid after its scheduled date.
func (e CalendarEvent) IsLate() bool { return e.ActualDate.After(e.OriginalDate) }
