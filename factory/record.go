/*
Package factory provides JSON to Go record conversion.

PURPOSE:
  Converts JSON record definitions (budget items, loans, clients) into
  engine records, upgrading older record shapes on the way in. The API
  accepts these shapes and the stores persist them, so every record that
  reaches the engine passes through here.

SCHEMA VERSIONS:
  1 (legacy):  a bare day-of-month, "day" for items and clients,
               "payment_day" for loans. No structured rule.
  2 (current): a "rule" object.

  A record without schema_version is version 2 if it has a rule and
  version 1 otherwise. Versions above 2 are rejected.

JSON SCHEMA (version 2):
  {
    "schema_version": 2,
    "id": "rent",
    "name": "Rent",
    "category": "expense",
    "amount": "1200",
    "rule": {"kind": "monthly", "day": 1, "weekend_adjustment": "toNextWeekday"},
    "start_date": "2024-01-01",
    "end_date": "2024-12-31",
    "active": true
  }

  Rule kinds: monthly {day}, monthEnd, weekly {weekday: "friday"},
  monthlyBusinessDay {nth}, nextMonthDay {day}.

USAGE:
  f := factory.NewRecordFactory()
  item, err := f.ParseItem(factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
  loan, err := f.ParseLoan(legacyLoanJSON) // payment_day -> monthly rule

SEE ALSO:
  - engine/records.go: Engine record types
  - presets.go: JSON builders for common records
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a recurrence rule.
type RuleJSON struct {
	Kind       string `json:"kind"`
	Day        int    `json:"day,omitempty"`
	Weekday    string `json:"weekday,omitempty"` // sunday..saturday
	Nth        int    `json:"nth,omitempty"`
	Adjustment string `json:"weekend_adjustment,omitempty"` // none, toPreviousWeekday, toNextWeekday
}

// ItemRecord is the JSON representation of a budget item.
type ItemRecord struct {
	SchemaVersion  int             `json:"schema_version,omitempty"`
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"` // income, expense, bank
	Amount         decimal.Decimal `json:"amount"`
	Rule           *RuleJSON       `json:"rule,omitempty"`
	Day            int             `json:"day,omitempty"` // version 1
	StartDate      string          `json:"start_date,omitempty"`
	EndDate        string          `json:"end_date,omitempty"`
	Active         *bool           `json:"active,omitempty"` // default true
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// LoanRecord is the JSON representation of a loan.
type LoanRecord struct {
	SchemaVersion  int             `json:"schema_version,omitempty"`
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"` // annual percent
	MaxLimit       decimal.Decimal `json:"max_limit"`
	Rule           *RuleJSON       `json:"rule,omitempty"`
	PaymentDay     int             `json:"payment_day,omitempty"` // version 1
	Active         *bool           `json:"active,omitempty"`
}

// ClientRecord is the JSON representation of a client receivable.
type ClientRecord struct {
	SchemaVersion int             `json:"schema_version,omitempty"`
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Rule          *RuleJSON       `json:"rule,omitempty"`
	Day           int             `json:"day,omitempty"` // version 1
	StartDate     string          `json:"start_date,omitempty"`
	EndDate       string          `json:"end_date,omitempty"`
	Active        *bool           `json:"active,omitempty"`
}

// =============================================================================
// MIGRATION
// =============================================================================

// Migrate returns the version 2 rule for a record of the given version.
// Version 0 means unversioned: a present rule makes it version 2.
func Migrate(version, legacyDay int, rule *RuleJSON) (*RuleJSON, error) {
	if version == 0 {
		version = engine.SchemaLegacy
		if rule != nil {
			version = engine.SchemaCurrent
		}
	}

	switch version {
	case engine.SchemaLegacy:
		if legacyDay <= 0 {
			legacyDay = engine.DefaultLegacyDay
		}
		return &RuleJSON{
			Kind:       string(engine.RuleMonthly),
			Day:        legacyDay,
			Adjustment: string(engine.AdjustNone),
		}, nil
	case engine.SchemaCurrent:
		if rule == nil {
			return nil, fmt.Errorf("%w: schema version 2 requires a rule", engine.ErrInvalidRecord)
		}
		return rule, nil
	default:
		return nil, fmt.Errorf("%w: %d", engine.ErrUnsupportedSchema, version)
	}
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts JSON records to engine records.
type RecordFactory struct {
	// NewID assigns IDs to records created without one.
	NewID func() string
}

// NewRecordFactory creates a factory that assigns random UUIDs.
func NewRecordFactory() *RecordFactory {
	return &RecordFactory{NewID: uuid.NewString}
}

// ParseItem parses a JSON string into a BudgetItem.
func (f *RecordFactory) ParseItem(jsonStr string) (engine.BudgetItem, error) {
	var r ItemRecord
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return engine.BudgetItem{}, fmt.Errorf("%w: failed to parse item JSON: %v", engine.ErrInvalidRecord, err)
	}
	return f.ItemFromRecord(r)
}

// ParseLoan parses a JSON string into a Loan.
func (f *RecordFactory) ParseLoan(jsonStr string) (engine.Loan, error) {
	var r LoanRecord
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return engine.Loan{}, fmt.Errorf("%w: failed to parse loan JSON: %v", engine.ErrInvalidRecord, err)
	}
	return f.LoanFromRecord(r)
}

// ParseClient parses a JSON string into a Client.
func (f *RecordFactory) ParseClient(jsonStr string) (engine.Client, error) {
	var r ClientRecord
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return engine.Client{}, fmt.Errorf("%w: failed to parse client JSON: %v", engine.ErrInvalidRecord, err)
	}
	return f.ClientFromRecord(r)
}

// ItemFromRecord validates, migrates and converts an item record.
func (f *RecordFactory) ItemFromRecord(r ItemRecord) (engine.BudgetItem, error) {
	if strings.TrimSpace(r.Name) == "" {
		return engine.BudgetItem{}, fmt.Errorf("%w: name is required", engine.ErrInvalidRecord)
	}
	category := engine.Category(r.Category)
	switch category {
	case engine.CategoryIncome, engine.CategoryExpense, engine.CategoryBank:
	default:
		return engine.BudgetItem{}, fmt.Errorf("%w: unknown category %q", engine.ErrInvalidRecord, r.Category)
	}

	rule, err := Migrate(r.SchemaVersion, r.Day, r.Rule)
	if err != nil {
		return engine.BudgetItem{}, err
	}
	window, err := parseWindow(r.StartDate, r.EndDate)
	if err != nil {
		return engine.BudgetItem{}, err
	}
	engineRule, err := toRule(rule)
	if err != nil {
		return engine.BudgetItem{}, err
	}

	return engine.BudgetItem{
		ID:             f.id(r.ID),
		Name:           r.Name,
		Category:       category,
		Amount:         r.Amount,
		Rule:           &engineRule,
		Window:         window,
		Active:         active(r.Active),
		CurrentBalance: r.CurrentBalance,
		SchemaVersion:  engine.SchemaCurrent,
	}, nil
}

// LoanFromRecord validates, migrates and converts a loan record.
func (f *RecordFactory) LoanFromRecord(r LoanRecord) (engine.Loan, error) {
	if strings.TrimSpace(r.Name) == "" {
		return engine.Loan{}, fmt.Errorf("%w: name is required", engine.ErrInvalidRecord)
	}
	if r.MonthlyPayment.IsNegative() || r.CurrentBalance.IsNegative() || r.InterestRate.IsNegative() {
		return engine.Loan{}, fmt.Errorf("%w: loan amounts must not be negative", engine.ErrInvalidRecord)
	}

	rule, err := Migrate(r.SchemaVersion, r.PaymentDay, r.Rule)
	if err != nil {
		return engine.Loan{}, err
	}
	engineRule, err := toRule(rule)
	if err != nil {
		return engine.Loan{}, err
	}

	return engine.Loan{
		ID:             f.id(r.ID),
		Name:           r.Name,
		MonthlyPayment: r.MonthlyPayment,
		CurrentBalance: r.CurrentBalance,
		InterestRate:   r.InterestRate,
		MaxLimit:       r.MaxLimit,
		Rule:           &engineRule,
		Active:         active(r.Active),
		SchemaVersion:  engine.SchemaCurrent,
	}, nil
}

// ClientFromRecord validates, migrates and converts a client record.
func (f *RecordFactory) ClientFromRecord(r ClientRecord) (engine.Client, error) {
	if strings.TrimSpace(r.Name) == "" {
		return engine.Client{}, fmt.Errorf("%w: name is required", engine.ErrInvalidRecord)
	}

	rule, err := Migrate(r.SchemaVersion, r.Day, r.Rule)
	if err != nil {
		return engine.Client{}, err
	}
	window, err := parseWindow(r.StartDate, r.EndDate)
	if err != nil {
		return engine.Client{}, err
	}
	engineRule, err := toRule(rule)
	if err != nil {
		return engine.Client{}, err
	}

	return engine.Client{
		ID:            f.id(r.ID),
		Name:          r.Name,
		Amount:        r.Amount,
		Rule:          &engineRule,
		Window:        window,
		Active:        active(r.Active),
		SchemaVersion: engine.SchemaCurrent,
	}, nil
}

func (f *RecordFactory) id(id string) engine.RecordID {
	if id == "" {
		return engine.RecordID(f.NewID())
	}
	return engine.RecordID(id)
}

// =============================================================================
// ENGINE -> JSON
// =============================================================================

// ItemToRecord is the inverse of ItemFromRecord for migrated items.
func ItemToRecord(item engine.BudgetItem) ItemRecord {
	start, end := formatWindow(item.Window)
	return ItemRecord{
		SchemaVersion:  engine.SchemaCurrent,
		ID:             string(item.ID),
		Name:           item.Name,
		Category:       string(item.Category),
		Amount:         item.Amount,
		Rule:           fromRule(item.RuleOrLegacy()),
		StartDate:      start,
		EndDate:        end,
		Active:         &item.Active,
		CurrentBalance: item.CurrentBalance,
	}
}

// LoanToRecord is the inverse of LoanFromRecord for migrated loans.
func LoanToRecord(loan engine.Loan) LoanRecord {
	return LoanRecord{
		SchemaVersion:  engine.SchemaCurrent,
		ID:             string(loan.ID),
		Name:           loan.Name,
		MonthlyPayment: loan.MonthlyPayment,
		CurrentBalance: loan.CurrentBalance,
		InterestRate:   loan.InterestRate,
		MaxLimit:       loan.MaxLimit,
		Rule:           fromRule(loan.RuleOrLegacy()),
		Active:         &loan.Active,
	}
}

// ClientToRecord is the inverse of ClientFromRecord for migrated clients.
func ClientToRecord(client engine.Client) ClientRecord {
	start, end := formatWindow(client.Window)
	return ClientRecord{
		SchemaVersion: engine.SchemaCurrent,
		ID:            string(client.ID),
		Name:          client.Name,
		Amount:        client.Amount,
		Rule:          fromRule(client.RuleOrLegacy()),
		StartDate:     start,
		EndDate:       end,
		Active:        &client.Active,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// toRule converts a migrated rule. Unknown kinds are kept: the engine
// resolves them to no dates.
func toRule(r *RuleJSON) (engine.Rule, error) {
	rule := engine.Rule{
		Kind:       engine.RuleKind(r.Kind),
		Day:        r.Day,
		Nth:        r.Nth,
		Adjustment: engine.WeekendAdjustment(r.Adjustment),
	}
	if rule.Adjustment == "" {
		rule.Adjustment = engine.AdjustNone
	}
	if rule.Kind == engine.RuleWeekly {
		wd, ok := weekdays[strings.ToLower(r.Weekday)]
		if !ok {
			return engine.Rule{}, fmt.Errorf("%w: unknown weekday %q", engine.ErrInvalidRecord, r.Weekday)
		}
		rule.Weekday = wd
	}
	return rule, nil
}

func fromRule(r engine.Rule) *RuleJSON {
	rj := &RuleJSON{
		Kind:       string(r.Kind),
		Day:        r.Day,
		Nth:        r.Nth,
		Adjustment: string(r.Adjustment),
	}
	if r.Kind == engine.RuleWeekly {
		rj.Weekday = strings.ToLower(r.Weekday.String())
	}
	return rj
}

func parseWindow(start, end string) (engine.Window, error) {
	var w engine.Window
	if start != "" {
		d, err := engine.ParseDate(start)
		if err != nil {
			return w, err
		}
		w.Start = &d
	}
	if end != "" {
		d, err := engine.ParseDate(end)
		if err != nil {
			return w, err
		}
		w.End = &d
	}
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return w, fmt.Errorf("%w: end_date %s before start_date %s", engine.ErrInvalidRecord, end, start)
	}
	return w, nil
}

func formatWindow(w engine.Window) (start, end string) {
	if w.Start != nil {
		start = w.Start.String()
	}
	if w.End != nil {
		end = w.End.String()
	}
	return start, end
}

func active(b *bool) bool {
	return b == nil || *b
}
