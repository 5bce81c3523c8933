package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (this planner never deals in times of day)
// =============================================================================

// DateLayout is the ISO layout used for every date crossing a boundary.
const DateLayout = "2006-01-02"

// Date is a calendar day normalized to midnight UTC.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and presets.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsWeekend() bool       { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) IsBusinessDay() bool   { return !d.IsWeekend() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) YearMonth() Month      { return Month{Year: d.Year(), Month: d.Month()} }
func (d Date) String() string        { return d.Time.Format(DateLayout) }

// =============================================================================
// MONTH - The unit of event generation
// =============================================================================

// Month identifies one calendar month. Events are generated and stored per Month.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates month in 1..12.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %d-%d", ErrInvalidMonth, year, month)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Start is the first day of the month.
func (m Month) Start() Date { return NewDate(m.Year, m.Month, 1) }

// End is the last day of the month.
func (m Month) End() Date { return NewDate(m.Year, m.Month+1, 0) }

// Days is the month's length. Leap years fall out of the calendar arithmetic.
func (m Month) Days() int { return m.End().Day() }

// Add moves n calendar months forward (negative n moves back).
func (m Month) Add(n int) Month {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Before(other Month) bool {
	return m.Year < other.Year || (m.Year == other.Year && m.Month < other.Month)
}

// Key is the storage key, "YYYY-MM".
func (m Month) Key() string    { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }
func (m Month) String() string { return m.Key() }

// DaysInMonth returns the length of the given month.
func DaysInMonth(year int, month time.Month) int {
	return Month{Year: year, Month: month}.Days()
}

// =============================================================================
// EFFECTIVE WINDOW - Gates a record's participation in a month
// =============================================================================

// Window is an optional inclusive date range. Either bound may be absent.
type Window struct {
	Start *Date
	End   *Date
}

// Includes reports whether the window overlaps the month. A record is
// excluded when its window ends before the month starts or starts after
// the month ends.
func (w Window) Includes(m Month) bool {
	if w.End != nil && w.End.Before(m.Start()) {
		return false
	}
	if w.Start != nil && w.Start.After(m.End()) {
		return false
	}
	return true
}

// String returns a string representation of the window.
func (w Window) String() string {
	start, end := "-inf", "+inf"
	if w.Start != nil {
		start = w.Start.String()
	}
	if w.End != nil {
		end = w.End.String()
	}
	return "[" + start + ", " + end + "]"
}
