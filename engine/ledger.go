/*
ledger.go - Month event ledger

PURPOSE:
  The Ledger is the stateful collaborator around the pure generator. It
  stores each month's events, regenerates a month from the current records
  without orphaning external calendar links, and records payments.

CRITICAL INVARIANTS:
  1. Events are never deleted one by one; a month is only replaced whole.
  2. Regeneration keeps the ExternalLinkID of every event whose ID survives.
  3. A pending event has ActualDate == OriginalDate and zero Penalty.

CONCURRENCY:
  Writes go through a single mutex. Concurrent Regenerate calls for the same
  month share one execution (singleflight), so two requests racing on a fresh
  month cannot generate it twice.

EXAMPLE FLOW:
  1. EnsureMonth(2024-05): month never generated -> generate and store
  2. LinkExternal("rent-2024-5-0", "gcal-123")
  3. Rent amount edited, Regenerate(2024-05): new amount, link kept
  4. MarkPaid("rent-2024-5-0", 2024-05-06): 5 days late -> penalty

SEE ALSO:
  - generator.go: GenerateMonthEvents, MergeRegenerated
  - penalty.go: CalculatePenalty
  - store.go: Store and RecordSource
*/
package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger holds generated events keyed by month.
type Ledger interface {
	// Month returns the stored events of m (empty if never generated).
	Month(ctx context.Context, m Month) ([]CalendarEvent, error)

	// EnsureMonth generates m if it was never generated, then returns its events.
	EnsureMonth(ctx context.Context, m Month) ([]CalendarEvent, error)

	// Regenerate recomputes m from the current records, carrying external
	// links forward, and replaces the stored month.
	Regenerate(ctx context.Context, m Month) ([]CalendarEvent, error)

	// MarkPaid records payment on actual and computes the late penalty.
	MarkPaid(ctx context.Context, id EventID, actual Date) (*CalendarEvent, error)

	// MarkPending reverts a payment.
	MarkPending(ctx context.Context, id EventID) (*CalendarEvent, error)

	// LinkExternal attaches an external calendar event ID.
	LinkExternal(ctx context.Context, id EventID, linkID string) (*CalendarEvent, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store   Store
	Records RecordSource

	mu    sync.Mutex
	group singleflight.Group
}

func NewLedger(store Store, records RecordSource) *DefaultLedger {
	return &DefaultLedger{Store: store, Records: records}
}

func (l *DefaultLedger) Month(ctx context.Context, m Month) ([]CalendarEvent, error) {
	return l.Store.LoadMonth(ctx, m)
}

func (l *DefaultLedger) EnsureMonth(ctx context.Context, m Month) ([]CalendarEvent, error) {
	exists, err := l.Store.HasMonth(ctx, m)
	if err != nil {
		return nil, err
	}
	if exists {
		return l.Store.LoadMonth(ctx, m)
	}
	return l.Regenerate(ctx, m)
}

func (l *DefaultLedger) Regenerate(ctx context.Context, m Month) ([]CalendarEvent, error) {
	v, err, _ := l.group.Do(m.Key(), func() (any, error) {
		return l.regenerate(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	// Shared callers get their own copy.
	events := v.([]CalendarEvent)
	return append([]CalendarEvent(nil), events...), nil
}

func (l *DefaultLedger) regenerate(ctx context.Context, m Month) ([]CalendarEvent, error) {
	items, err := l.Records.Items(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := l.Records.Loans(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := l.Records.Clients(ctx)
	if err != nil {
		return nil, err
	}

	fresh := GenerateMonthEvents(items, loans, clients, m.Year, m.Month)

	l.mu.Lock()
	defer l.mu.Unlock()

	prior, err := l.Store.LoadMonth(ctx, m)
	if err != nil {
		return nil, err
	}
	merged := MergeRegenerated(prior, fresh)
	if err := l.Store.ReplaceMonth(ctx, m, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (l *DefaultLedger) MarkPaid(ctx context.Context, id EventID, actual Date) (*CalendarEvent, error) {
	return l.update(ctx, id, "mark paid", func(e *CalendarEvent) error {
		if e.IsPaid() {
			return ErrAlreadyPaid
		}
		e.Status = StatusPaid
		e.ActualDate = actual
		e.Penalty = PenaltyFor(*e, actual)
		return nil
	})
}

func (l *DefaultLedger) MarkPending(ctx context.Context, id EventID) (*CalendarEvent, error) {
	return l.update(ctx, id, "mark pending", func(e *CalendarEvent) error {
		e.Status = StatusPending
		e.ActualDate = e.OriginalDate
		e.Penalty = decimal.Zero
		return nil
	})
}

func (l *DefaultLedger) LinkExternal(ctx context.Context, id EventID, linkID string) (*CalendarEvent, error) {
	return l.update(ctx, id, "link", func(e *CalendarEvent) error {
		e.ExternalLinkID = linkID
		return nil
	})
}

func (l *DefaultLedger) update(ctx context.Context, id EventID, op string, mutate func(*CalendarEvent) error) (*CalendarEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.Store.LoadEvent(ctx, id)
	if err != nil {
		return nil, &EventError{EventID: id, Op: op, Err: err}
	}
	if err := mutate(e); err != nil {
		return nil, &EventError{EventID: id, Op: op, Err: err}
	}
	if err := l.Store.SaveEvent(ctx, *e); err != nil {
		return nil, &EventError{EventID: id, Op: op, Err: err}
	}
	return e, nil
}
