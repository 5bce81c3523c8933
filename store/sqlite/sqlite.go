/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements engine.Store (month event ledger) and engine.RecordStore
  (items, loans, clients) using SQLite. The PostgreSQL store in
  store/postgres follows the same layout with dialect differences only.

INTERFACES IMPLEMENTED:
  engine.Store:       Calendar events grouped by month
  engine.RecordStore: Source records

KEY TABLES:
  records: One row per source record. The record itself is the factory
           JSON shape in config_json, so old rows written with a bare
           day-of-month are migrated by the factory on every read.
  months:  One row per generated month. A month generated with zero
           events still has a row.
  events:  Calendar events, ordered within a month by position.

MONTH REPLACEMENT:
  ReplaceMonth deletes and re-inserts a month's events inside one SQL
  transaction; readers never see a half-written month.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are limited to
  one connection, since every new connection would open an empty database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/planner.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := engine.NewLedger(store, store)

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/ledger.go: Higher-level ledger using Store
  - engine/store/memory.go: In-memory implementation for testing
  - factory/record.go: Record JSON shapes and migration
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/factory"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	records *factory.RecordFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, records: factory.NewRecordFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Source records (items, loans, clients) as factory JSON
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		schema_version INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(kind, id)
	);

	-- Generated months
	CREATE TABLE IF NOT EXISTS months (
		month_key TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL
	);

	-- Calendar events
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		month_key TEXT NOT NULL REFERENCES months(month_key) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		source_kind TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		original_date TEXT NOT NULL,
		actual_date TEXT NOT NULL,
		penalty TEXT NOT NULL,
		status TEXT NOT NULL,
		external_link_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_month
		ON events(month_key, position);
	CREATE INDEX IF NOT EXISTS idx_events_external_link
		ON events(external_link_id) WHERE external_link_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENT STORE (engine.Store interface)
// =============================================================================

const eventColumns = `id, month_key, source_id, source_kind, name, category, amount,
	original_date, actual_date, penalty, status, external_link_id`

// LoadMonth returns a month's events in generation order.
func (s *Store) LoadMonth(ctx context.Context, m engine.Month) ([]engine.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE month_key = ? ORDER BY position ASC",
		m.Key(),
	)
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

// HasMonth reports whether the month was ever generated.
func (s *Store) HasMonth(ctx context.Context, m engine.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM months WHERE month_key = ?", m.Key(),
	).Scan(&count)
	return count > 0, err
}

// ReplaceMonth atomically replaces every event of the month.
func (s *Store) ReplaceMonth(ctx context.Context, m engine.Month, events []engine.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	key := m.Key()
	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE month_key = ?", key); err != nil {
		return fmt.Errorf("failed to clear month %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO months (month_key, generated_at) VALUES (?, ?)
		ON CONFLICT(month_key) DO UPDATE SET generated_at = excluded.generated_at`,
		key, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to record month %s: %w", key, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, month_key, position, source_id, source_kind, name, category,
			amount, original_date, actual_date, penalty, status, external_link_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range events {
		_, err := stmt.ExecContext(ctx,
			e.ID, key, i, e.SourceID, e.SourceKind, e.Name, e.Category,
			e.Amount.String(),
			e.OriginalDate.String(),
			e.ActualDate.String(),
			e.Penalty.String(),
			e.Status,
			nullString(e.ExternalLinkID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// LoadEvent returns a single event or engine.ErrEventNotFound.
func (s *Store) LoadEvent(ctx context.Context, id engine.EventID) (*engine.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, engine.ErrEventNotFound
	}
	e, err := scanEvent(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveEvent overwrites the mutable fields of an existing event.
func (s *Store) SaveEvent(ctx context.Context, e engine.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			name = ?, category = ?, amount = ?, original_date = ?, actual_date = ?,
			penalty = ?, status = ?, external_link_id = ?
		WHERE id = ?`,
		e.Name, e.Category, e.Amount.String(), e.OriginalDate.String(), e.ActualDate.String(),
		e.Penalty.String(), e.Status, nullString(e.ExternalLinkID),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrEventNotFound
	}
	return nil
}

func scanEvent(rows *sql.Rows) (engine.CalendarEvent, error) {
	var (
		e                      engine.CalendarEvent
		monthKey               string
		amount, penalty        string
		originalDate, actualAt string
		externalLinkID         sql.NullString
	)

	err := rows.Scan(
		&e.ID, &monthKey, &e.SourceID, &e.SourceKind, &e.Name, &e.Category, &amount,
		&originalDate, &actualAt, &penalty, &e.Status, &externalLinkID,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan event: %w", err)
	}

	if e.Period, err = engine.ParseMonth(monthKey); err != nil {
		return e, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("event %s amount: %w", e.ID, err)
	}
	if e.Penalty, err = decimal.NewFromString(penalty); err != nil {
		return e, fmt.Errorf("event %s penalty: %w", e.ID, err)
	}
	if e.OriginalDate, err = engine.ParseDate(originalDate); err != nil {
		return e, err
	}
	if e.ActualDate, err = engine.ParseDate(actualAt); err != nil {
		return e, err
	}
	e.ExternalLinkID = externalLinkID.String

	return e, nil
}

// =============================================================================
// RECORD STORE (engine.RecordStore interface)
// =============================================================================

// SaveItem upserts a budget item.
func (s *Store) SaveItem(ctx context.Context, item engine.BudgetItem) error {
	return s.saveRecord(ctx, engine.KindItem, item.ID, item.Name, item.Active, factory.ItemToRecord(item))
}

// GetItem returns an item or engine.ErrRecordNotFound.
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

// Items lists budget items in creation order.
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

// SaveLoan upserts a loan.
func (s *Store) SaveLoan(ctx context.Context, loan engine.Loan) error {
	return s.saveRecord(ctx, engine.KindLoan, loan.ID, loan.Name, loan.Active, factory.LoanToRecord(loan))
}

// GetLoan returns a loan or engine.ErrRecordNotFound.
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

// Loans lists loans in creation order.
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

// SaveClient upserts a client.
func (s *Store) SaveClient(ctx context.Context, client engine.Client) error {
	return s.saveRecord(ctx, engine.KindClient, client.ID, client.Name, client.Active, factory.ClientToRecord(client))
}

// GetClient returns a client or engine.ErrRecordNotFound.
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

// Clients lists clients in creation order.
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

// SaveRawRecord stores a record's JSON exactly as given, without migrating
// it. Used to import records exported by older clients.
func (s *Store) SaveRawRecord(ctx context.Context, kind engine.SourceKind, id engine.RecordID, name string, schemaVersion int, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertRecord(ctx, kind, id, name, true, schemaVersion, configJSON)
}

func (s *Store) saveRecord(ctx context.Context, kind engine.SourceKind, id engine.RecordID, name string, active bool, record any) error {
	config, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertRecord(ctx, kind, id, name, active, engine.SchemaCurrent, string(config))
}

func (s *Store) upsertRecord(ctx context.Context, kind engine.SourceKind, id engine.RecordID, name string, active bool, schemaVersion int, config string) error {
	query := `
		INSERT INTO records (kind, id, name, active, schema_version, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active,
			schema_version = excluded.schema_version,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query, kind, id, name, active, schemaVersion, config, now, now)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) getRecord(ctx context.Context, kind engine.SourceKind, id engine.RecordID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var config string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM records WHERE kind = ? AND id = ?", kind, id,
	).Scan(&config)
	if errors.Is(err, sql.ErrNoRows) {
		return "", engine.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return config, nil
}

func (s *Store) listRecords(ctx context.Context, kind engine.SourceKind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json FROM records WHERE kind = ? ORDER BY seq ASC", kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	defer rows.Close()

	var configs []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", kind, err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"events", "months", "records"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var (
	_ engine.Store       = (*Store)(nil)
	_ engine.RecordStore = (*Store)(nil)
)
