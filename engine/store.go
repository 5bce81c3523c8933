/*
store.go - Persistence interfaces for records and month events

PURPOSE:
  Defines the boundary between the pure engine and whatever holds state.
  The engine itself keeps nothing between calls; the Store and RecordStore
  implementations own every piece of mutable state in the system.

KEY INTERFACES:
  Store:        Calendar events keyed by month (the event ledger's storage)
  RecordSource: Read access to the source records generation needs
  RecordStore:  RecordSource plus writes, for the API layer

MONTH REPLACEMENT:
  ReplaceMonth swaps a month's whole event set atomically. Readers see either
  the old set or the new set, never a mix. A month that was generated with
  zero events still counts as generated (HasMonth returns true).

IMPLEMENTATIONS:
  - engine/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite (default)
  - store/postgres/store.go: PostgreSQL (DATABASE_URL)

SEE ALSO:
  - ledger.go: Higher-level ledger using Store and RecordSource
*/
package engine

import "context"

// =============================================================================
// STORE - Month event persistence
// =============================================================================

// Store persists calendar events grouped by the month they were generated for.
type Store interface {
	// LoadMonth returns the month's events in generation order.
	LoadMonth(ctx context.Context, m Month) ([]CalendarEvent, error)

	// HasMonth reports whether the month was ever generated.
	HasMonth(ctx context.Context, m Month) (bool, error)

	// ReplaceMonth atomically replaces every event of the month.
	ReplaceMonth(ctx context.Context, m Month, events []CalendarEvent) error

	// LoadEvent returns a single event or ErrEventNotFound.
	LoadEvent(ctx context.Context, id EventID) (*CalendarEvent, error)

	// SaveEvent overwrites an existing event or returns ErrEventNotFound.
	SaveEvent(ctx context.Context, e CalendarEvent) error
}

// =============================================================================
// RECORD STORE - Source records (master data)
// =============================================================================

// RecordSource supplies the records event generation consumes.
type RecordSource interface {
	Items(ctx context.Context) ([]BudgetItem, error)
	Loans(ctx context.Context) ([]Loan, error)
	Clients(ctx context.Context) ([]Client, error)
}

// RecordStore adds single-record reads and upserts. Get* return
// ErrRecordNotFound for unknown IDs.
type RecordStore interface {
	RecordSource

	SaveItem(ctx context.Context, item BudgetItem) error
	GetItem(ctx context.Context, id RecordID) (*BudgetItem, error)

	SaveLoan(ctx context.Context, loan Loan) error
	GetLoan(ctx context.Context, id RecordID) (*Loan, error)

	SaveClient(ctx context.Context, client Client) error
	GetClient(ctx context.Context, id RecordID) (*Client, error)
}
