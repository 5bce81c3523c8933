/*
errors.go - Centralized error types for the planner engine

PURPOSE:
  The pure engine functions (date resolution, event generation, penalty,
  amortization) never fail: unknown rules produce no dates, loans that cannot
  amortize are reported through the never-pays-off path. Errors only exist at
  the boundaries - the ledger, the stores, and record parsing - and they all
  live here so callers can match them with errors.Is.

ERROR CATEGORIES:
  1. Lookup errors - missing events or source records
  2. Input errors - malformed dates, months, schema versions
  3. State errors - operations that conflict with an event's status

SEE ALSO:
  - ledger.go: Returns these errors
  - factory/record.go: Schema version errors
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEventNotFound is returned when a calendar event ID is unknown to the ledger.
	ErrEventNotFound = errors.New("event not found")

	// ErrRecordNotFound is returned when a source record (item, loan, client) doesn't exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidMonth is returned for months outside 1..12 or unparsable month keys.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidDate is returned for dates that are not ISO YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnsupportedSchema is returned when a record carries a schema version
	// newer than this build understands.
	ErrUnsupportedSchema = errors.New("unsupported schema version")

	// ErrAlreadyPaid is returned when marking an already paid event as paid.
	ErrAlreadyPaid = errors.New("event already paid")

	// ErrInvalidRecord is returned when a source record fails validation.
	ErrInvalidRecord = errors.New("invalid record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// EventError ties a failure to a specific calendar event.
type EventError struct {
	EventID EventID
	Op      string
	Err     error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.EventID, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing event or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrUnsupportedSchema) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrAlreadyPaid)
}
