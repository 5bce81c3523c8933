package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPenaltyRate is the late-payment surcharge per day late (0.1%/day).
// It is a flat policy rate, independent of any loan's own interest rate.
var DailyPenaltyRate = decimal.RequireFromString("0.001")

const oneDay = 24 * time.Hour

// CalculatePenalty returns the surcharge for paying amount at actual instead
// of scheduled: floor(|amount| * DailyPenaltyRate * daysLate).
//
// daysLate rounds partial days up, so one second late counts as one day.
// On-time and early payments are never penalized.
func CalculatePenalty(amount decimal.Decimal, scheduled, actual time.Time) decimal.Decimal {
	daysLate := LateDays(scheduled, actual)
	if daysLate <= 0 {
		return decimal.Zero
	}
	return amount.Abs().
		Mul(DailyPenaltyRate).
		Mul(decimal.NewFromInt(daysLate)).
		Floor()
}

// LateDays is ceil((actual - scheduled) / 24h). Negative when paid early.
func LateDays(scheduled, actual time.Time) int64 {
	diff := actual.Sub(scheduled)
	days := int64(diff / oneDay)
	if diff%oneDay > 0 {
		days++
	}
	return days
}

// PenaltyFor is CalculatePenalty over an event's amount and original date.
func PenaltyFor(e CalendarEvent, actual Date) decimal.Decimal {
	return CalculatePenalty(e.Amount, e.OriginalDate.Time, actual.Time)
}
