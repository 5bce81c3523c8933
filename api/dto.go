/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. DTOs decouple the
  API contract from internal domain types, allowing independent evolution.

WHY DTOs?
  - Domain types may have fields that shouldn't be exposed
  - API may need computed fields not in domain
  - Different serialization requirements (dates as strings)
  - Versioning: API can change without changing domain

RECORDS:
  Items, loans and clients are exchanged in the factory JSON shapes
  (factory.ItemRecord etc.), the same shapes the stores persist.

CONVENTIONS:
  - Dates as ISO YYYY-MM-DD strings, months as YYYY-MM
  - Money as decimal strings ("1200.50")
  - Snake_case JSON field names
  - Optional fields use pointers or omitempty

SEE ALSO:
  - handlers.go: Uses these DTOs
  - factory/record.go: Record shapes
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/budget"
	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/loans"
)

// =============================================================================
// EVENT DTOs
// =============================================================================

// EventDTO represents a calendar event in API responses.
type EventDTO struct {
	ID             string          `json:"id"`
	Month          string          `json:"month"`
	SourceID       string          `json:"source_id"`
	SourceKind     string          `json:"source_kind"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalDate   string          `json:"original_date"`
	ActualDate     string          `json:"actual_date"`
	Penalty        decimal.Decimal `json:"penalty"`
	Status         string          `json:"status"`
	ExternalLinkID string          `json:"external_link_id,omitempty"`
}

// PayRequest marks an event paid. ActualDate defaults to today.
type PayRequest struct {
	ActualDate string `json:"actual_date,omitempty"`
}

// LinkRequest attaches an external calendar event.
type LinkRequest struct {
	ExternalID string `json:"external_id"`
}

// =============================================================================
// MONTH DTOs
// =============================================================================

// MonthSummaryDTO is the cash-flow view of one month.
type MonthSummaryDTO struct {
	Month        string          `json:"month"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Penalties    decimal.Decimal `json:"penalties"`
	Net          decimal.Decimal `json:"net"`
	Events       int             `json:"events"`
	Paid         int             `json:"paid"`
	Pending      int             `json:"pending"`
	Late         int             `json:"late"`
	Opening      decimal.Decimal `json:"opening_balance"`
	Closing      decimal.Decimal `json:"closing_balance"`
	Shortfall    *ShortfallDTO   `json:"first_shortfall,omitempty"`
	DailyBalance []PointDTO      `json:"daily_balance"`
}

// ShortfallDTO is the first day the balance goes negative.
type ShortfallDTO struct {
	Date    string          `json:"date"`
	EventID string          `json:"event_id"`
	Balance decimal.Decimal `json:"balance"`
}

// PointDTO is an end-of-day balance.
type PointDTO struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// =============================================================================
// LOAN DTOs
// =============================================================================

// PayoffSummaryDTO is the portfolio payoff projection.
type PayoffSummaryDTO struct {
	AsOf         string          `json:"as_of"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	PayoffDate   string          `json:"payoff_date"`  // YYYY-MM or "never"
	TotalMonths  *int            `json:"total_months"` // null when never
	NeverPaysOff bool            `json:"never_pays_off"`
}

// ProjectionDTO is a single loan's schedule.
type ProjectionDTO struct {
	LoanID        string           `json:"loan_id"`
	Months        *int             `json:"months"`
	NeverPaysOff  bool             `json:"never_pays_off"`
	PayoffDate    string           `json:"payoff_date"`
	TotalInterest decimal.Decimal  `json:"total_interest"`
	TotalPaid     decimal.Decimal  `json:"total_paid"`
	Utilization   *decimal.Decimal `json:"utilization,omitempty"`
	Schedule      []ScheduleRowDTO `json:"schedule"`
}

// ScheduleRowDTO is one month of a loan schedule.
type ScheduleRowDTO struct {
	Number    int             `json:"number"`
	Month     string          `json:"month"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Payment   decimal.Decimal `json:"payment"`
	Remaining decimal.Decimal `json:"remaining"`
}

// WhatIfRequest describes hypothetical loan changes.
type WhatIfRequest struct {
	AsOf    string          `json:"as_of,omitempty"`
	Changes []LoanChangeDTO `json:"changes"`
}

// LoanChangeDTO is one hypothetical change.
type LoanChangeDTO struct {
	LoanID         string           `json:"loan_id"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment,omitempty"`
	InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`
	LumpSum        *decimal.Decimal `json:"lump_sum,omitempty"`
	Exclude        bool             `json:"exclude,omitempty"`
}

// WhatIfResponse compares baseline and scenario.
type WhatIfResponse struct {
	Baseline      PayoffSummaryDTO `json:"baseline"`
	Scenario      PayoffSummaryDTO `json:"scenario"`
	MonthsSaved   int              `json:"months_saved"`
	InterestSaved decimal.Decimal  `json:"interest_saved"`
}

// =============================================================================
// COMMON DTOs
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEventDTO(e engine.CalendarEvent) EventDTO {
	return EventDTO{
		ID:             string(e.ID),
		Month:          e.Period.Key(),
		SourceID:       string(e.SourceID),
		SourceKind:     string(e.SourceKind),
		Name:           e.Name,
		Category:       string(e.Category),
		Amount:         e.Amount,
		OriginalDate:   e.OriginalDate.String(),
		ActualDate:     e.ActualDate.String(),
		Penalty:        e.Penalty,
		Status:         string(e.Status),
		ExternalLinkID: e.ExternalLinkID,
	}
}

func toEventDTOs(events []engine.CalendarEvent) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	return dtos
}

func toMonthSummaryDTO(s budget.Summary, tl *budget.Timeline) MonthSummaryDTO {
	dto := MonthSummaryDTO{
		Month:     s.Month.Key(),
		Income:    s.Income,
		Expense:   s.Expense,
		Penalties: s.Penalties,
		Net:       s.Net,
		Events:    s.Events,
		Paid:      s.Paid,
		Pending:   s.Pending,
		Late:      s.Late,
		Opening:   tl.Opening,
		Closing:   tl.Closing(),
	}
	if short := tl.FirstShortfall(); short != nil {
		dto.Shortfall = &ShortfallDTO{
			Date:    short.Date.String(),
			EventID: string(short.EventID),
			Balance: short.Balance,
		}
	}
	for _, p := range tl.Points(s.Month.Start(), s.Month.End()) {
		dto.DailyBalance = append(dto.DailyBalance, PointDTO{Date: p.Date.String(), Balance: p.Balance})
	}
	return dto
}

func toPayoffSummaryDTO(s loans.PayoffSummary, asOf engine.Date) PayoffSummaryDTO {
	dto := PayoffSummaryDTO{
		AsOf:         asOf.String(),
		TotalBalance: s.TotalBalance,
		MonthlyTotal: s.MonthlyTotal,
		PayoffDate:   s.PayoffDate.String(),
		NeverPaysOff: s.NeverPaysOff,
	}
	if !s.NeverPaysOff {
		months := s.TotalMonths
		dto.TotalMonths = &months
	}
	return dto
}

func toProjectionDTO(loan engine.Loan, p loans.Projection) ProjectionDTO {
	dto := ProjectionDTO{
		LoanID:        string(p.LoanID),
		NeverPaysOff:  p.NeverPaysOff,
		PayoffDate:    p.PayoffDate.String(),
		TotalInterest: p.TotalInterest,
		TotalPaid:     p.TotalPaid,
		Schedule:      make([]ScheduleRowDTO, 0, len(p.Schedule)),
	}
	if !p.NeverPaysOff {
		months := p.Months
		dto.Months = &months
	}
	if ratio, ok := loans.Utilization(loan); ok {
		dto.Utilization = &ratio
	}
	for _, r := range p.Schedule {
		dto.Schedule = append(dto.Schedule, ScheduleRowDTO{
			Number:    r.Number,
			Month:     r.Period.Key(),
			Interest:  r.Interest,
			Principal: r.Principal,
			Payment:   r.Payment,
			Remaining: r.Remaining,
		})
	}
	return dto
}

func toChanges(dtos []LoanChangeDTO) []loans.Change {
	changes := make([]loans.Change, len(dtos))
	for i, c := range dtos {
		changes[i] = loans.Change{
			LoanID:         engine.RecordID(c.LoanID),
			MonthlyPayment: c.MonthlyPayment,
			InterestRate:   c.InterestRate,
			LumpSum:        c.LumpSum,
			Exclude:        c.Exclude,
		}
	}
	return changes
}
