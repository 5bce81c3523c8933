/*
Package postgres provides a pgx-backed implementation of the storage interfaces.

PURPOSE:
  Same contract as store/sqlite (engine.Store and engine.RecordStore) over
  PostgreSQL, selected when DATABASE_URL is set. The schema lives in
  db/migrations and is applied by Migrate.

TYPES:
  Money is NUMERIC. It crosses the wire as text so that decimal values keep
  every digit. Dates are DATE. Records are JSONB in the factory shape, so
  legacy rows are migrated on read exactly as in the SQLite store.

CONCURRENCY:
  All methods are safe for concurrent use; the pool and the database handle
  it. ReplaceMonth runs in one transaction.

SEE ALSO:
  - store/sqlite/sqlite.go: SQLite implementation
  - db/migrations/0001_init.sql: Schema
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/db"
	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/factory"
)

// Store holds a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	records *factory.RecordFactory
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, records: factory.NewRecordFactory()}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies the embedded schema migrations. They are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := db.Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to apply %s: %w", m.Name, err)
		}
	}
	return nil
}

// =============================================================================
// EVENT STORE (engine.Store interface)
// =============================================================================

const eventColumns = `id, month_key, source_id, source_kind, name, category, amount::text,
	original_date, actual_date, penalty::text, status, external_link_id`

func (s *Store) LoadMonth(ctx context.Context, m engine.Month) ([]engine.CalendarEvent, error) {
	rows, err := s.pool.Query(ctx,
		`select `+eventColumns+` from events where month_key = $1 order by position`, m.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []engine.CalendarEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) HasMonth(ctx context.Context, m engine.Month) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`select exists(select 1 from months where month_key = $1)`, m.Key()).Scan(&exists)
	return exists, err
}

func (s *Store) ReplaceMonth(ctx context.Context, m engine.Month, events []engine.CalendarEvent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	key := m.Key()
	if _, err := tx.Exec(ctx, `
		insert into months (month_key, generated_at) values ($1, now())
		on conflict (month_key) do update set generated_at = excluded.generated_at`, key); err != nil {
		return fmt.Errorf("failed to record month %s: %w", key, err)
	}
	if _, err := tx.Exec(ctx, `delete from events where month_key = $1`, key); err != nil {
		return fmt.Errorf("failed to clear month %s: %w", key, err)
	}

	batch := &pgx.Batch{}
	for i, e := range events {
		batch.Queue(`
			insert into events (id, month_key, position, source_id, source_kind, name, category,
				amount, original_date, actual_date, penalty, status, external_link_id)
			values ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11::numeric, $12, $13)`,
			string(e.ID), key, i, string(e.SourceID), string(e.SourceKind), e.Name, string(e.Category),
			e.Amount.String(), e.OriginalDate.Time, e.ActualDate.Time, e.Penalty.String(),
			string(e.Status), nullable(e.ExternalLinkID),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert events for %s: %w", key, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) LoadEvent(ctx context.Context, id engine.EventID) (*engine.CalendarEvent, error) {
	row := s.pool.QueryRow(ctx, `select `+eventColumns+` from events where id = $1`, string(id))
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) SaveEvent(ctx context.Context, e engine.CalendarEvent) error {
	tag, err := s.pool.Exec(ctx, `
		update events set
			name = $2, category = $3, amount = $4::numeric, original_date = $5, actual_date = $6,
			penalty = $7::numeric, status = $8, external_link_id = $9
		where id = $1`,
		string(e.ID), e.Name, string(e.Category), e.Amount.String(), e.OriginalDate.Time, e.ActualDate.Time,
		e.Penalty.String(), string(e.Status), nullable(e.ExternalLinkID),
	)
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (engine.CalendarEvent, error) {
	var (
		e                      engine.CalendarEvent
		id, sourceID           string
		monthKey               string
		sourceKind, category   string
		status                 string
		amount, penalty        string
		originalDate, actualAt time.Time
		externalLinkID         *string
	)
	if err := row.Scan(&id, &monthKey, &sourceID, &sourceKind, &e.Name, &category, &amount,
		&originalDate, &actualAt, &penalty, &status, &externalLinkID); err != nil {
		return e, err
	}

	e.ID = engine.EventID(id)
	e.SourceID = engine.RecordID(sourceID)
	e.SourceKind = engine.SourceKind(sourceKind)
	e.Category = engine.Category(category)
	e.Status = engine.EventStatus(status)
	e.OriginalDate = engine.DateOf(originalDate)
	e.ActualDate = engine.DateOf(actualAt)
	if externalLinkID != nil {
		e.ExternalLinkID = *externalLinkID
	}

	var err error
	if e.Period, err = engine.ParseMonth(monthKey); err != nil {
		return e, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("event %s amount: %w", id, err)
	}
	if e.Penalty, err = decimal.NewFromString(penalty); err != nil {
		return e, fmt.Errorf("event %s penalty: %w", id, err)
	}
	return e, nil
}

// =============================================================================
// RECORD STORE (engine.RecordStore interface)
// =============================================================================

func (s *Store) SaveItem(ctx context.Context, item engine.BudgetItem) error {
	return s.saveRecord(ctx, engine.KindItem, item.ID, item.Name, item.Active, factory.ItemToRecord(item))
}

func (s *Store) GetItem(ctx context.Context, id engine.RecordID) (*engine.BudgetItem, error) {
	config, err := s.getRecord(ctx, engine.KindItem, id)
	if err != nil {
		return nil, err
	}
	item, err := s.records.ParseItem(config)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) Items(ctx context.Context) ([]engine.BudgetItem, error) {
	configs, err := s.listRecords(ctx, engine.KindItem)
	if err != nil {
		return nil, err
	}
	items := make([]engine.BudgetItem, 0, len(configs))
	for _, c := range configs {
		item, err := s.records.ParseItem(c)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) SaveLoan(ctx context.Context, loan engine.Loan) error {
	return s.saveRecord(ctx, engine.KindLoan, loan.ID, loan.Name, loan.Active, factory.LoanToRecord(loan))
}

func (s *Store) GetLoan(ctx context.Context, id engine.RecordID) (*engine.Loan, error) {
	config, err := s.getRecord(ctx, engine.KindLoan, id)
	if err != nil {
		return nil, err
	}
	loan, err := s.records.ParseLoan(config)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *Store) Loans(ctx context.Context) ([]engine.Loan, error) {
	configs, err := s.listRecords(ctx, engine.KindLoan)
	if err != nil {
		return nil, err
	}
	loans := make([]engine.Loan, 0, len(configs))
	for _, c := range configs {
		loan, err := s.records.ParseLoan(c)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

func (s *Store) SaveClient(ctx context.Context, client engine.Client) error {
	return s.saveRecord(ctx, engine.KindClient, client.ID, client.Name, client.Active, factory.ClientToRecord(client))
}

func (s *Store) GetClient(ctx context.Context, id engine.RecordID) (*engine.Client, error) {
	config, err := s.getRecord(ctx, engine.KindClient, id)
	if err != nil {
		return nil, err
	}
	client, err := s.records.ParseClient(config)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Store) Clients(ctx context.Context) ([]engine.Client, error) {
	configs, err := s.listRecords(ctx, engine.KindClient)
	if err != nil {
		return nil, err
	}
	clients := make([]engine.Client, 0, len(configs))
	for _, c := range configs {
		client, err := s.records.ParseClient(c)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func (s *Store) saveRecord(ctx context.Context, kind engine.SourceKind, id engine.RecordID, name string, active bool, record any) error {
	config, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, id, err)
	}
	_, err = s.pool.Exec(ctx, `
		insert into records (kind, id, name, active, schema_version, config)
		values ($1, $2, $3, $4, $5, $6::jsonb)
		on conflict (kind, id) do update set
			name = excluded.name,
			active = excluded.active,
			schema_version = excluded.schema_version,
			config = excluded.config,
			updated_at = now()`,
		string(kind), string(id), name, active, engine.SchemaCurrent, string(config),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) getRecord(ctx context.Context, kind engine.SourceKind, id engine.RecordID) (string, error) {
	var config string
	err := s.pool.QueryRow(ctx,
		`select config::text from records where kind = $1 and id = $2`, string(kind), string(id),
	).Scan(&config)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", engine.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return config, nil
}

func (s *Store) listRecords(ctx context.Context, kind engine.SourceKind) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`select config::text from records where kind = $1 order by seq`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "truncate events, months, records restart identity")
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var (
	_ engine.Store       = (*Store)(nil)
	_ engine.RecordStore = (*Store)(nil)
)
